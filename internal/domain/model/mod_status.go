package model

import (
	"fmt"
	"strconv"
	"strings"
)

// モデレーション状態。Stageとは独立。
type ModStatus string

const (
	ModStatusCreated  ModStatus = "created"
	ModStatusApproved ModStatus = "approved"
	ModStatusArchived ModStatus = "archived"
	ModStatusRejected ModStatus = "rejected"
)

var legacyModStatus = map[int]ModStatus{
	1: ModStatusCreated,
	2: ModStatusApproved,
	3: ModStatusArchived,
	4: ModStatusRejected,
}

func (s ModStatus) Valid() bool {
	switch s {
	case ModStatusCreated, ModStatusApproved, ModStatusArchived, ModStatusRejected:
		return true
	}
	return false
}

// ParseModStatus accepts a status name or its legacy numeric code (1..4).
func ParseModStatus(raw string) (ModStatus, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if n, err := strconv.Atoi(v); err == nil {
		if s, ok := legacyModStatus[n]; ok {
			return s, nil
		}
		return "", fmt.Errorf("unknown mod status code %d", n)
	}
	s := ModStatus(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown mod status %q", raw)
	}
	return s, nil
}
