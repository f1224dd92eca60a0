// Copyright 2025 AxonFlow
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package apiserver

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"axonflow/workflowengine/action"
	"axonflow/workflowengine/loader"
	"axonflow/workflowengine/value"
)

// runWorkflowRequest is the POST /workflows/run body: an inline workflow
// document (JSON-encoded) plus its input record and an optional tenant
// scope for the driver's per-tenant execution index.
type runWorkflowRequest struct {
	Workflow json.RawMessage        `json:"workflow"`
	Inputs   map[string]value.Value `json:"inputs"`
	TenantID string                 `json:"tenant_id"`
}

func (s *Server) runWorkflowHandler(w http.ResponseWriter, r *http.Request) {
	var req runWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Workflow) == 0 {
		writeError(w, http.StatusBadRequest, "workflow is required")
		return
	}

	wf, err := loader.FromBytes(req.Workflow)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid workflow: "+err.Error())
		return
	}

	result, err := s.Driver.ExecuteForTenant(r.Context(), req.TenantID, wf, req.Inputs, action.NewCancelSignal())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "workflow execution failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) getExecutionHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		writeError(w, http.StatusBadRequest, "execution id is required")
		return
	}
	result, ok := s.Driver.GetExecution(id)
	if !ok {
		writeError(w, http.StatusNotFound, "execution not found")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) tenantExecutionsHandler(w http.ResponseWriter, r *http.Request) {
	tenant := mux.Vars(r)["tenant_id"]
	if tenant == "" {
		writeError(w, http.StatusBadRequest, "tenant_id is required")
		return
	}
	executions := s.Driver.ExecutionsByTenant(tenant)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tenant_id":  tenant,
		"count":      len(executions),
		"executions": executions,
	})
}

// errorResponse is the {success, error} envelope for non-2xx replies.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Success: false, Error: message})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
