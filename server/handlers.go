package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/viert/slotstore/common"
	"github.com/viert/slotstore/engine"
	"github.com/viert/slotstore/storage"
)

// InfoResponse is a json-marked-up structure for info handler
type InfoResponse struct {
	AppName      string `json:"app_name"`
	SlotCapacity uint32 `json:"slot_capacity"`
	EndSlotCount uint32 `json:"end_slot_count"`
	FreeSlots    int    `json:"free_slots"`
}

// IncomingData is a json-marked-up structure for incoming data
type IncomingData struct {
	Data string `json:"data"`
}

// DataResponse holds a record read back from its slots
type DataResponse struct {
	Slots []uint32 `json:"slots"`
	Data  string   `json:"data"`
}

// WriteDataResponse lists the slots a record was written to
type WriteDataResponse struct {
	Slots []uint32 `json:"slots"`
}

// DeleteResponse reports the number of slots deleted
type DeleteResponse struct {
	Deleted int  `json:"deleted"`
	Hard    bool `json:"hard"`
}

func parseSlots(raw string) ([]uint32, error) {
	tokens := strings.Split(raw, ",")
	slots := make([]uint32, 0, len(tokens))
	for _, token := range tokens {
		idx, err := strconv.ParseUint(strings.TrimSpace(token), 10, 32)
		if err != nil {
			return nil, common.NewHTTPError(http.StatusBadRequest, "invalid slot id '%s'", token)
		}
		slots = append(slots, uint32(idx))
	}
	return slots, nil
}

// engineError maps engine and storage failures to http errors
func engineError(action string, err error) error {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrStopped), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = http.StatusServiceUnavailable
	case errors.Is(err, engine.ErrEmptyWrite), errors.Is(err, storage.ErrCapacity):
		code = http.StatusBadRequest
	}
	log.Errorf("error %s: %s", action, err)
	return common.NewHTTPError(code, "error %s: %s", action, err)
}

func (s *Server) appInfo(r *http.Request) (interface{}, error) {
	info, err := s.engine.Info(r.Context())
	if err != nil {
		return nil, engineError("getting storage info", err)
	}
	return &InfoResponse{
		AppName:      "slotstore",
		SlotCapacity: info.SlotCapacity,
		EndSlotCount: info.EndSlotCount,
		FreeSlots:    info.FreeSlots,
	}, nil
}

func (s *Server) getData(r *http.Request) (interface{}, error) {
	slots, err := parseSlots(mux.Vars(r)["ids"])
	if err != nil {
		return nil, err
	}

	data, err := s.engine.Read(r.Context(), slots)
	if err != nil {
		return nil, engineError("reading data", err)
	}
	return &DataResponse{Slots: slots, Data: string(data)}, nil
}

func (s *Server) appendData(r *http.Request) (interface{}, error) {
	var input IncomingData
	err := common.ReadJSON(r, &input)
	if err != nil {
		return nil, err
	}

	if input.Data == "" {
		return nil, common.NewHTTPError(http.StatusBadRequest, "input data is empty")
	}

	slots, err := s.engine.Write(r.Context(), []byte(input.Data))
	if err != nil {
		return nil, engineError("writing data to storage", err)
	}
	return &WriteDataResponse{Slots: slots}, nil
}

func (s *Server) deleteData(r *http.Request) (interface{}, error) {
	slots, err := parseSlots(mux.Vars(r)["ids"])
	if err != nil {
		return nil, err
	}

	hard := false
	if raw := r.URL.Query().Get("hard"); raw != "" {
		hard, err = strconv.ParseBool(raw)
		if err != nil {
			return nil, common.NewHTTPError(http.StatusBadRequest, "invalid hard flag '%s'", raw)
		}
	}

	err = s.engine.Delete(r.Context(), slots, hard)
	if err != nil {
		return nil, engineError("deleting data", err)
	}
	return &DeleteResponse{Deleted: len(slots), Hard: hard}, nil
}
