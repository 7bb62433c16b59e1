package flow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/wonderelo/wonderelo/internal/models"
)

// StatusResponse is the backend's answer to "what is my status/match for
// this round". It carries everything the pure phase calculator needs,
// including the server's clock, so the displayed phase never depends on
// client-local time alone.
type StatusResponse struct {
	ServerTime   time.Time                `json:"server_time"`
	Round        models.Round             `json:"round"`
	Params       models.SystemParams      `json:"params"`
	Status       models.ParticipantStatus `json:"status"`
	Match        *models.Match            `json:"match,omitempty"`
	ContactPrefs map[uuid.UUID]bool       `json:"contact_prefs,omitempty"`
	Contacts     []SharedContact          `json:"contacts,omitempty"`
}

// SharedContact is a partner's contact details, present only after mutual
// opt-in.
type SharedContact struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
}

// NoShowResult is returned from a no-show report; NewMatch is set when the
// server managed to rematch the reporter immediately.
type NoShowResult struct {
	NewMatch *models.Match `json:"new_match,omitempty"`
}

type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// Client is the JSON-over-HTTP bearer client for the participant endpoints.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// NewClient creates a client bound to one participant token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpc:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Status fetches the participant's status and match for a round.
func (c *Client) Status(ctx context.Context, roundID, participantID uuid.UUID) (*StatusResponse, error) {
	var out StatusResponse
	path := fmt.Sprintf("/api/v1/rounds/%s/participants/%s/status", roundID, participantID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmAttendance confirms the participant for the round.
func (c *Client) ConfirmAttendance(ctx context.Context, roundID, participantID uuid.UUID) error {
	path := fmt.Sprintf("/api/v1/rounds/%s/participants/%s/confirm", roundID, participantID)
	return c.do(ctx, http.MethodPost, path, struct{}{}, nil)
}

// CheckIn submits a peer-supplied code to prove presence at the meeting point.
func (c *Client) CheckIn(ctx context.Context, roundID, participantID uuid.UUID, scannedCode string) (*models.Match, error) {
	body := map[string]string{"scanned_code": scannedCode}
	var out models.Match
	path := fmt.Sprintf("/api/v1/rounds/%s/participants/%s/checkin", roundID, participantID)
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmMeet marks the meeting as confirmed without a code exchange
// (organizer-assisted fallback).
func (c *Client) ConfirmMeet(ctx context.Context, roundID, participantID uuid.UUID) (*models.Match, error) {
	var out models.Match
	path := fmt.Sprintf("/api/v1/rounds/%s/participants/%s/confirm-meet", roundID, participantID)
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReportNoShow reports a partner as absent and asks for a rematch.
func (c *Client) ReportNoShow(ctx context.Context, roundID, participantID, noShowID uuid.UUID, notes string) (*NoShowResult, error) {
	body := map[string]string{
		"no_show_participant_id": noShowID.String(),
		"notes":                  notes,
	}
	var out NoShowResult
	path := fmt.Sprintf("/api/v1/rounds/%s/participants/%s/no-show", roundID, participantID)
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitContactPrefs submits the per-partner opt-in map. The server only
// exchanges details when both sides opt in; the client just submits intent.
func (c *Client) SubmitContactPrefs(ctx context.Context, matchID, participantID uuid.UUID, prefs map[uuid.UUID]bool) error {
	body := map[string]any{"prefs": prefs}
	path := fmt.Sprintf("/api/v1/matches/%s/participants/%s/contact-prefs", matchID, participantID)
	return c.do(ctx, http.MethodPost, path, body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return newError(ErrorKindNetwork, "could not reach the server", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.toError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return newError(ErrorKindServer, "malformed server response", err)
		}
	}
	return nil
}

// toError maps a non-2xx response to the flow error taxonomy. The body's
// error string is surfaced verbatim.
func (c *Client) toError(resp *http.Response) error {
	var body errorBody
	_ = json.NewDecoder(resp.Body).Decode(&body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return newError(ErrorKindAuth, body.Error, nil)
	case resp.StatusCode == http.StatusNotFound:
		// The reason code distinguishes "no match exists yet" from
		// "matching hasn't run".
		if body.Reason == ReasonNoMatch {
			return newError(ErrorKindNoMatch, body.Error, nil)
		}
		return newError(ErrorKindNotReady, body.Error, nil)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return newError(ErrorKindValidation, body.Error, nil)
	default:
		return newError(ErrorKindServer, body.Error, nil)
	}
}

// Reason codes carried in 404 bodies.
const (
	ReasonNoMatch        = "no_match"
	ReasonMatchingNotRun = "matching_not_run"
)
