package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"plp-bookstore/internal/queries"
	"plp-bookstore/internal/runner"
	"plp-bookstore/internal/utils"
)

type StepHandler struct {
	Collection *mongo.Collection
	Runner     *runner.Runner
}

func NewStepHandler(coll *mongo.Collection, r *runner.Runner) *StepHandler {
	return &StepHandler{Collection: coll, Runner: r}
}

type StepView struct {
	Step    int             `json:"step"`
	Name    string          `json:"name"`
	Label   string          `json:"label"`
	Kind    queries.Kind    `json:"kind"`
	Class   queries.Class   `json:"class"`
	Command json.RawMessage `json:"command"`
}

type RunResponse struct {
	Results []queries.Result `json:"results"`
	Error   string           `json:"error,omitempty"`
	Step    int              `json:"failed_step,omitempty"`
}

// GET /steps
func (h *StepHandler) ListSteps(w http.ResponseWriter, r *http.Request) {
	views := make([]StepView, 0, len(h.Runner.Steps))
	for i, op := range h.Runner.Steps {
		cmd, err := commandJSON(op)
		if err != nil {
			utils.JSONError(w, "Failed to render step "+op.Name+": "+err.Error(), http.StatusInternalServerError)
			return
		}
		views = append(views, StepView{
			Step:    i + 1,
			Name:    op.Name,
			Label:   op.Label,
			Kind:    op.Kind,
			Class:   op.Class(),
			Command: cmd,
		})
	}

	json.NewEncoder(w).Encode(views)
}

// POST /steps/{name}
func (h *StepHandler) RunStep(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	step, op, ok := h.find(name)
	if !ok {
		utils.JSONError(w, "Step not found", http.StatusNotFound)
		return
	}

	res, err := h.Runner.RunStep(r.Context(), h.Collection, step, op)
	if err != nil {
		utils.JSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(res)
}

// POST /run
func (h *StepHandler) RunAll(w http.ResponseWriter, r *http.Request) {
	results, err := h.Runner.Run(r.Context(), h.Collection)
	resp := RunResponse{Results: results}
	if err != nil {
		resp.Error = err.Error()
		var failure *runner.OperationFailure
		if errors.As(err, &failure) {
			resp.Step = failure.Step
		}
		w.WriteHeader(http.StatusInternalServerError)
	}

	json.NewEncoder(w).Encode(resp)
}

func (h *StepHandler) find(name string) (int, queries.Operation, bool) {
	for i, op := range h.Runner.Steps {
		if op.Name == name {
			return i + 1, op, true
		}
	}
	return 0, queries.Operation{}, false
}

// commandJSON renders the structured parameters of op as relaxed extended
// JSON.
func commandJSON(op queries.Operation) (json.RawMessage, error) {
	cmd := bson.D{}
	if op.Filter != nil {
		cmd = append(cmd, bson.E{Key: "filter", Value: op.Filter})
	}
	if op.Projection != nil {
		cmd = append(cmd, bson.E{Key: "projection", Value: op.Projection})
	}
	if op.Sort != nil {
		cmd = append(cmd, bson.E{Key: "sort", Value: op.Sort})
	}
	if op.Skip != nil {
		cmd = append(cmd, bson.E{Key: "skip", Value: *op.Skip})
	}
	if op.Limit != nil {
		cmd = append(cmd, bson.E{Key: "limit", Value: *op.Limit})
	}
	if op.Update != nil {
		cmd = append(cmd, bson.E{Key: "update", Value: op.Update})
	}
	if op.Pipeline != nil {
		cmd = append(cmd, bson.E{Key: "pipeline", Value: op.Pipeline})
	}
	if op.Keys != nil {
		cmd = append(cmd, bson.E{Key: "keys", Value: op.Keys})
	}
	if op.Verbosity != "" {
		cmd = append(cmd, bson.E{Key: "verbosity", Value: op.Verbosity})
	}

	raw, err := bson.MarshalExtJSON(cmd, false, false)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}
