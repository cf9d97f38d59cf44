package luma

import (
	"fmt"
	"strings"
	"time"
)

// CaptureType is the kind of processing requested for a capture.
type CaptureType string

const (
	CaptureTypeReconstruction CaptureType = "reconstruction"
	CaptureTypeGeneration     CaptureType = "generation"
)

// ParseCaptureType matches a capture type name case-insensitively.
// Unknown names return ok=false so server-added types never break callers.
func ParseCaptureType(name string) (CaptureType, bool) {
	switch strings.ToLower(name) {
	case "reconstruction":
		return CaptureTypeReconstruction, true
	case "generation":
		return CaptureTypeGeneration, true
	}
	return "", false
}

// CameraType is the camera model a capture was recorded with.
type CameraType string

const (
	CameraNormal          CameraType = "normal"
	CameraFisheye         CameraType = "fisheye"
	CameraEquirectangular CameraType = "equirectangular"
)

// ParseCameraType matches a camera model name case-insensitively.
func ParseCameraType(name string) (CameraType, bool) {
	switch strings.ToLower(name) {
	case "normal":
		return CameraNormal, true
	case "fisheye":
		return CameraFisheye, true
	case "equirectangular":
		return CameraEquirectangular, true
	}
	return "", false
}

// PrivacyLevel controls who can see a capture.
type PrivacyLevel string

const (
	PrivacyPrivate  PrivacyLevel = "private"
	PrivacyUnlisted PrivacyLevel = "unlisted"
	PrivacyPublic   PrivacyLevel = "public"
	PrivacyOpen     PrivacyLevel = "open"
)

// ParsePrivacyLevel matches a privacy level name case-insensitively.
func ParsePrivacyLevel(name string) (PrivacyLevel, bool) {
	switch strings.ToLower(name) {
	case "private":
		return PrivacyPrivate, true
	case "unlisted":
		return PrivacyUnlisted, true
	case "public":
		return PrivacyPublic, true
	case "open":
		return PrivacyOpen, true
	}
	return "", false
}

// CaptureStatus is the upload state of a capture. Not to be confused
// with RunStatus, which tracks processing.
type CaptureStatus string

const (
	CaptureNew       CaptureStatus = "new"
	CaptureUploading CaptureStatus = "uploading"
	CaptureComplete  CaptureStatus = "complete"
)

// ParseCaptureStatus matches a capture status name case-insensitively.
func ParseCaptureStatus(name string) (CaptureStatus, bool) {
	switch strings.ToLower(name) {
	case "new":
		return CaptureNew, true
	case "uploading":
		return CaptureUploading, true
	case "complete":
		return CaptureComplete, true
	}
	return "", false
}

// RunStatus is the state of a single processing run.
type RunStatus string

const (
	RunNew        RunStatus = "new"
	RunDispatched RunStatus = "dispatched"
	RunFailed     RunStatus = "failed"
	RunFinished   RunStatus = "finished"
)

// ParseRunStatus matches a run status name case-insensitively.
func ParseRunStatus(name string) (RunStatus, bool) {
	switch strings.ToLower(name) {
	case "new":
		return RunNew, true
	case "dispatched":
		return RunDispatched, true
	case "failed":
		return RunFailed, true
	case "finished":
		return RunFinished, true
	}
	return "", false
}

// CreditInfo is the account credit balance.
type CreditInfo struct {
	Remaining int `json:"remaining" yaml:"remaining"`
	Used      int `json:"used" yaml:"used"`
	Total     int `json:"total" yaml:"total"`
}

// CaptureLocation is an optional geo-tag on a capture. API uploads
// usually do not carry one.
type CaptureLocation struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Name      string  `json:"name" yaml:"name"`
	IsVisible bool    `json:"isVisible" yaml:"isVisible"`
}

// CaptureLocationFromMap builds a location from a decoded JSON payload.
// Every field is optional; missing fields take their defaults. Note the
// inbound key is is_visible while the outbound key is isVisible.
func CaptureLocationFromMap(m map[string]any) CaptureLocation {
	loc := CaptureLocation{IsVisible: true}
	if v, ok := m["latitude"].(float64); ok {
		loc.Latitude = v
	}
	if v, ok := m["longitude"].(float64); ok {
		loc.Longitude = v
	}
	if v, ok := m["name"].(string); ok {
		loc.Name = v
	}
	if v, ok := m["is_visible"].(bool); ok {
		loc.IsVisible = v
	}
	return loc
}

// Artifact is one output file of a processing run.
type Artifact struct {
	Type string `json:"type" yaml:"type"`
	URL  string `json:"url" yaml:"url"`
}

// RunInfo is the latest processing run of a capture. Progress is
// informational only; the server does not guarantee it is monotonic.
type RunInfo struct {
	Status       RunStatus  `json:"status" yaml:"status"`
	Progress     int        `json:"progress" yaml:"progress"`
	CurrentStage string     `json:"currentStage" yaml:"currentStage"`
	Artifacts    []Artifact `json:"artifacts" yaml:"artifacts"`
}

// RunInfoFromMap builds run info from a decoded JSON payload. The status
// field is required; an unknown status value is kept as the zero value
// rather than rejected.
func RunInfoFromMap(m map[string]any) (RunInfo, error) {
	name, err := stringField(m, "status")
	if err != nil {
		return RunInfo{}, err
	}
	run := RunInfo{}
	run.Status, _ = ParseRunStatus(name)
	if v, ok := m["progress"].(float64); ok {
		run.Progress = int(v)
	}
	if v, ok := m["currentStage"].(string); ok {
		run.CurrentStage = v
	}
	if raw, ok := m["artifacts"].([]any); ok {
		run.Artifacts = make([]Artifact, 0, len(raw))
		for _, entry := range raw {
			a, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			artifact := Artifact{}
			if v, ok := a["type"].(string); ok {
				artifact.Type = v
			}
			if v, ok := a["url"].(string); ok {
				artifact.URL = v
			}
			run.Artifacts = append(run.Artifacts, artifact)
		}
	}
	return run, nil
}

// CaptureInfo is one submitted capture and its state.
type CaptureInfo struct {
	Title     string           `json:"title" yaml:"title"`
	Type      CaptureType      `json:"type" yaml:"type"`
	Location  *CaptureLocation `json:"location,omitempty" yaml:"location,omitempty"`
	Privacy   PrivacyLevel     `json:"privacy" yaml:"privacy"`
	Date      time.Time        `json:"date" yaml:"date"`
	Username  string           `json:"username" yaml:"username"`
	Status    CaptureStatus    `json:"status" yaml:"status"`
	LatestRun *RunInfo         `json:"latestRun,omitempty" yaml:"latestRun,omitempty"`
}

// CaptureInfoFromMap builds a capture from a decoded JSON payload.
// title, type, privacy, date, username and status are required; location
// and latestRun are nil when the server omits them. Unknown enum values
// are kept as zero values so new server-side variants do not error.
func CaptureInfoFromMap(m map[string]any) (CaptureInfo, error) {
	info := CaptureInfo{}

	var err error
	if info.Title, err = stringField(m, "title"); err != nil {
		return CaptureInfo{}, err
	}
	typeName, err := stringField(m, "type")
	if err != nil {
		return CaptureInfo{}, err
	}
	info.Type, _ = ParseCaptureType(typeName)

	privacyName, err := stringField(m, "privacy")
	if err != nil {
		return CaptureInfo{}, err
	}
	info.Privacy, _ = ParsePrivacyLevel(privacyName)

	dateRaw, err := stringField(m, "date")
	if err != nil {
		return CaptureInfo{}, err
	}
	if info.Date, err = ParseCaptureDate(dateRaw); err != nil {
		return CaptureInfo{}, fmt.Errorf("field date: %w", err)
	}

	if info.Username, err = stringField(m, "username"); err != nil {
		return CaptureInfo{}, err
	}
	statusName, err := stringField(m, "status")
	if err != nil {
		return CaptureInfo{}, err
	}
	info.Status, _ = ParseCaptureStatus(statusName)

	if raw, ok := m["location"].(map[string]any); ok {
		loc := CaptureLocationFromMap(raw)
		info.Location = &loc
	}
	if raw, ok := m["latestRun"].(map[string]any); ok {
		run, err := RunInfoFromMap(raw)
		if err != nil {
			return CaptureInfo{}, fmt.Errorf("field latestRun: %w", err)
		}
		info.LatestRun = &run
	}

	return info, nil
}

// ParseCaptureDate parses the server's capture timestamps. The server
// emits ISO-8601 with a non-standard trailing zone marker; the final
// character is stripped and +00:00 appended before parsing. This is a
// compatibility quirk of the service, not general ISO-8601 handling.
func ParseCaptureDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date string")
	}
	normalized := s[:len(s)-1] + "+00:00"
	t, err := time.Parse(time.RFC3339, normalized)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing capture date %q: %w", s, err)
	}
	return t, nil
}

// stringField reads a required string field from a wire payload.
func stringField(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", &MissingFieldError{Field: key}
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q: expected string, got %T", key, v)
	}
	return s, nil
}
