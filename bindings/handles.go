package main

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/nickyhof/DocQL"
	"github.com/nickyhof/DocQL/core"
	"github.com/nickyhof/DocQL/db"
	"github.com/nickyhof/DocQL/ps"
	"github.com/nickyhof/DocQL/sql"
)

var bindingIdentity = core.Identity{
	Name:  "DocQL Python",
	Email: "python@docql.local",
}

var errInvalidHandle = errors.New("invalid handle")

// Handle is an open instance owned by a foreign caller.
type Handle struct {
	instance *DocQL.Instance
	engine   *db.Engine
}

// handleTable maps the integers handed across the C boundary to instances.
type handleTable struct {
	mu      sync.Mutex
	handles map[int]*Handle
	next    int
}

var handles = &handleTable{handles: make(map[int]*Handle), next: 1}

func (table *handleTable) add(instance *DocQL.Instance) int {
	table.mu.Lock()
	defer table.mu.Unlock()

	id := table.next
	table.next++
	table.handles[id] = &Handle{
		instance: instance,
		engine:   instance.Engine(bindingIdentity),
	}
	return id
}

func (table *handleTable) get(id int) (*Handle, bool) {
	table.mu.Lock()
	defer table.mu.Unlock()
	h, ok := table.handles[id]
	return h, ok
}

func (table *handleTable) remove(id int) (*Handle, bool) {
	table.mu.Lock()
	defer table.mu.Unlock()
	h, ok := table.handles[id]
	delete(table.handles, id)
	return h, ok
}

// Response mirrors the server protocol.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Type    string          `json:"type,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

func openMemory() (int, error) {
	persistence, err := ps.NewMemoryPersistence()
	if err != nil {
		return -1, err
	}
	return handles.add(DocQL.OpenPersistence(persistence, bindingIdentity)), nil
}

func openFile(path string) (int, error) {
	persistence, err := ps.NewFilePersistence(path, "")
	if err != nil {
		return -1, err
	}
	return handles.add(DocQL.OpenPersistence(persistence, bindingIdentity)), nil
}

func closeHandle(id int) error {
	h, ok := handles.remove(id)
	if !ok {
		return errInvalidHandle
	}
	return h.instance.Close(context.Background())
}

// execute runs query on the handle and returns the JSON response.
func execute(id int, query string) []byte {
	h, ok := handles.get(id)
	if !ok {
		return encodeResponse(errorResponse(errInvalidHandle))
	}

	result, err := h.engine.Execute(context.Background(), query)
	if err != nil {
		return encodeResponse(errorResponse(err))
	}

	data, err := json.Marshal(result)
	if err != nil {
		return encodeResponse(errorResponse(err))
	}
	return encodeResponse(Response{
		Success: true,
		Type:    result.Type().String(),
		Result:  data,
	})
}

func errorResponse(err error) Response {
	resp := Response{Success: false, Error: err.Error()}
	switch {
	case errors.Is(err, sql.ErrUnsupportedOperation):
		resp.Type = "unsupported_operation"
	case errors.Is(err, sql.ErrMalformedStatement):
		resp.Type = "malformed_statement"
	case errors.Is(err, db.ErrAdapterFailure):
		resp.Type = "adapter_failure"
	}
	return resp
}

func encodeResponse(resp Response) []byte {
	data, _ := json.Marshal(resp)
	return data
}
