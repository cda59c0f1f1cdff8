package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openshop/appointment-intake/internal/events"
	"github.com/openshop/appointment-intake/internal/model"
	"github.com/openshop/appointment-intake/internal/storage"
)

// IntakeHandler validates an inbound appointment request, checks the target
// slot for an existing booking, and performs the id-conditional insert.
type IntakeHandler struct {
	store        storage.Store
	events       *events.Publisher
	logger       *slog.Logger
	exposeDetail bool

	// Injected so tests control identity and time.
	now   func() time.Time
	newID func() string
}

func NewIntakeHandler(store storage.Store, publisher *events.Publisher, logger *slog.Logger, exposeDetail bool) *IntakeHandler {
	return &IntakeHandler{
		store:        store,
		events:       publisher,
		logger:       logger,
		exposeDetail: exposeDetail,
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

// appointmentPayload is the decoded request document. Pointer fields
// distinguish absent from empty; services stays raw until the shape check.
type appointmentPayload struct {
	FullName        *string         `json:"fullName"`
	Location        *string         `json:"location"`
	AppointmentTime *string         `json:"appointmentTime"`
	Car             *string         `json:"car"`
	Services        json.RawMessage `json:"services"`
}

func (h *IntakeHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Invalid request body format"})
		return
	}

	payload, err := decodePayload(raw)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Invalid request body format"})
		return
	}

	if name := payload.firstMissingField(); name != "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Missing required field: " + name})
		return
	}

	var services []string
	if err := json.Unmarshal(payload.Services, &services); err != nil || len(services) == 0 {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Services must be a non-empty array"})
		return
	}

	appointmentTime := *payload.AppointmentTime
	if _, err := time.Parse(time.RFC3339, appointmentTime); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Invalid date format for appointmentTime"})
		return
	}

	// The raw time string feeds the key so conflicts are detected on the
	// exact form callers submit.
	key := model.LocationTimeKey(*payload.Location, appointmentTime)

	ctx := r.Context()
	existing, err := h.store.QueryByLocationTimeKey(ctx, key)
	if err != nil {
		h.logger.Error("conflict check failed", "location_time_key", key, "err", err)
		h.writeStoreError(w, "Could not process appointment request", err)
		return
	}
	if len(existing) > 0 {
		h.writeJSON(w, http.StatusConflict, map[string]any{
			"message": "This appointment time is already booked at this location",
		})
		return
	}

	now := h.now().UTC()
	appt := model.Appointment{
		ID:              h.newID(),
		FullName:        *payload.FullName,
		Location:        *payload.Location,
		Car:             *payload.Car,
		AppointmentTime: appointmentTime,
		Services:        services,
		LocationTimeKey: key,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	// The precondition guards a double write of the same generated id only;
	// the slot conflict was handled above and a narrow race window remains.
	if err := h.store.PutIfIDAbsent(ctx, appt); err != nil {
		h.logger.Error("appointment insert failed", "appointment_id", appt.ID, "err", err)
		h.writeStoreError(w, "Could not create appointment", err)
		return
	}

	h.logger.Info("appointment created",
		"appointment_id", appt.ID,
		"location_time_key", appt.LocationTimeKey,
	)
	h.events.AppointmentCreated(ctx, appt)

	h.writeJSON(w, http.StatusOK, map[string]any{
		"message":       "Appointment created successfully",
		"appointmentId": appt.ID,
		"appointment":   appt,
	})
}

// decodePayload resolves the two accepted body forms (a JSON object, or a
// JSON string whose contents are the object) into one document.
func decodePayload(raw []byte) (appointmentPayload, error) {
	doc := bytes.TrimSpace(raw)
	if len(doc) == 0 {
		return appointmentPayload{}, errors.New("empty body")
	}
	if doc[0] == '"' {
		var inner string
		if err := json.Unmarshal(doc, &inner); err != nil {
			return appointmentPayload{}, err
		}
		doc = bytes.TrimSpace([]byte(inner))
	}
	if len(doc) == 0 || doc[0] != '{' {
		return appointmentPayload{}, errors.New("payload is not an object")
	}
	var p appointmentPayload
	if err := json.Unmarshal(doc, &p); err != nil {
		return appointmentPayload{}, err
	}
	return p, nil
}

// firstMissingField walks the required fields in their fixed order and names
// the first one that is absent, null, or blank.
func (p appointmentPayload) firstMissingField() string {
	if blank(p.FullName) {
		return "fullName"
	}
	if blank(p.Location) {
		return "location"
	}
	if blank(p.AppointmentTime) {
		return "appointmentTime"
	}
	if blank(p.Car) {
		return "car"
	}
	if len(p.Services) == 0 || string(p.Services) == "null" {
		return "services"
	}
	return ""
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func (h *IntakeHandler) writeStoreError(w http.ResponseWriter, message string, err error) {
	body := map[string]any{"message": message}
	if h.exposeDetail {
		body["error"] = err.Error()
		body["time"] = h.now().UTC().Format(time.RFC3339)
		if se, ok := storage.AsStoreError(err); ok {
			if se.Err != nil {
				body["error"] = se.Err.Error()
			}
			body["code"] = se.Code
			body["tableName"] = se.Table
			body["params"] = se.Params
		}
	}
	h.writeJSON(w, http.StatusInternalServerError, body)
}

func (h *IntakeHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("response encode failed", "err", err)
	}
}
