package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// ListPartition tags a saved-list line as fulfilled from stock or as the
// surplus remainder of a request that exceeded availability.
type ListPartition string

const (
	PartitionFulfilled ListPartition = "F"
	PartitionSurplus   ListPartition = "S"
)

func (p *ListPartition) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		*p = ListPartition(v)
	case string:
		*p = ListPartition(v)
	default:
		return fmt.Errorf("unsupported list partition value: %v", value)
	}
	switch *p {
	case PartitionFulfilled, PartitionSurplus:
		return nil
	}
	return errors.New("invalid list partition")
}

func (p ListPartition) Value() (driver.Value, error) {
	switch p {
	case PartitionFulfilled, PartitionSurplus:
		return string(p), nil
	}
	return nil, errors.New("invalid list partition")
}
