package api

import (
	"net/http"

	"stirka/internal/models"
)

func (s *HTTPServer) handleListMachines(w http.ResponseWriter, r *http.Request) {
	machines, err := s.machines.ListMachines(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if machines == nil {
		machines = []*models.Machine{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"machines": machines})
}

func (s *HTTPServer) handleSetMachineStatus(w http.ResponseWriter, r *http.Request) {
	machineID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid machine id")
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	if err := s.machines.SetMachineStatus(r.Context(), machineID, body.Status); err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "machine status updated successfully"})
}

func (s *HTTPServer) handleCreateMachine(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MachineName string `json:"machine_name"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	machine, err := s.machines.CreateMachine(r.Context(), body.MachineName)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":    "machine added successfully",
		"machine_id": machine.ID,
	})
}
