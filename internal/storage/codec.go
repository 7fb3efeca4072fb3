package storage

import (
	"encoding/json"
	"errors"
)

const CurrentSchemaVersion = 1

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeFitRecord(r FitRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeFitRecord(data []byte) (FitRecord, error) {
	var record FitRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return FitRecord{}, err
	}
	if record.SchemaVersion != CurrentSchemaVersion {
		return FitRecord{}, ErrVersionMismatch
	}
	return record, nil
}
