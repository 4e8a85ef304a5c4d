package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gearxr/gear/internal/parser"
	"github.com/gearxr/gear/pkg/core"
	"github.com/gearxr/gear/pkg/rpc"
)

// ServicePath is where the host accepts call batches.
const ServicePath = "/lib/ajax/service.php"

// Client speaks the batched call protocol to a host over HTTP.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	parser     *parser.Parser
}

// New creates a new API client.
func New(baseURL, token string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		parser:     parser.NewParser(logger),
	}
}

// Healthcheck checks if the host is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthcheck", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// FetchBootstrap loads the page bootstrap bundle for a course module.
func (c *Client) FetchBootstrap(ctx context.Context, cmid int64) (core.Bootstrap, error) {
	var b core.Bootstrap

	url := c.baseURL + "/view/" + strconv.FormatInt(cmid, 10) + "/bootstrap"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return b, fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return b, fmt.Errorf("bootstrap request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return b, fmt.Errorf("bootstrap: %w", err)
	}
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		return b, fmt.Errorf("decoding bootstrap: %w", err)
	}
	return b, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func statusError(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("status %d: %w", resp.StatusCode, ErrAccessDenied)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// call sends a single-call batch and decodes its data into out.
func (c *Client) call(ctx context.Context, method string, args, out any) error {
	rawArgs, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("%s: encoding args: %w", method, err)
	}
	body, err := json.Marshal([]rpc.Call{{Index: 0, MethodName: method, Args: rawArgs}})
	if err != nil {
		return fmt.Errorf("%s: encoding batch: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ServicePath+"?info="+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", method, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	var results []rpc.Result
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return fmt.Errorf("%s: decoding reply: %w", method, err)
	}
	if len(results) != 1 {
		return fmt.Errorf("%s: expected 1 result, got %d", method, len(results))
	}

	res := results[0]
	if res.Error {
		re := &RemoteError{Method: method, Code: rpc.CodeInternal, Message: "unknown error"}
		if res.Exception != nil {
			re.Code = res.Exception.ErrorCode
			re.Message = res.Exception.Message
		}
		return re
	}
	if out == nil || len(res.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(res.Data, out); err != nil {
		return fmt.Errorf("%s: decoding data: %w", method, err)
	}
	return nil
}

// GetHotspots implements Gateway.
func (c *Client) GetHotspots(ctx context.Context, gearID int64) ([]core.Hotspot, error) {
	var res rpc.GetHotspotsResult
	if err := c.call(ctx, rpc.MethodGetHotspots, rpc.GetHotspotsArgs{GearID: gearID}, &res); err != nil {
		return nil, err
	}

	out := make([]core.Hotspot, 0, len(res.Hotspots))
	for _, r := range res.Hotspots {
		h := core.Hotspot{
			ID:        r.ID,
			GearID:    gearID,
			ModelID:   r.ModelID,
			Type:      core.HotspotType(r.Type),
			Title:     r.Title,
			Content:   r.Content,
			Icon:      r.Icon,
			SortOrder: r.SortOrder,
			Config:    c.parser.ParseHotspotConfig(r.Config),
		}
		if !h.Type.Valid() {
			h.Type = core.HotspotInfo
		}
		h.Position, _ = c.parser.ParseVec3(r.Position, core.Vec3{})
		out = append(out, h)
	}
	return out, nil
}

// SaveHotspot implements Gateway.
func (c *Client) SaveHotspot(ctx context.Context, r core.SaveHotspotRequest) (core.SaveResult, error) {
	var res core.SaveResult

	pos, err := json.Marshal(r.Position)
	if err != nil {
		return res, fmt.Errorf("encoding position: %w", err)
	}
	cfg := ""
	if !r.Config.IsZero() {
		raw, err := json.Marshal(r.Config)
		if err != nil {
			return res, fmt.Errorf("encoding config: %w", err)
		}
		cfg = string(raw)
	}

	args := rpc.SaveHotspotArgs{
		ID:       r.ID,
		GearID:   r.GearID,
		ModelID:  r.ModelID,
		Type:     string(r.Type),
		Title:    r.Title,
		Content:  r.Content,
		Position: string(pos),
		Icon:     r.Icon,
		Config:   cfg,
	}
	err = c.call(ctx, rpc.MethodSaveHotspot, args, &res)
	return res, err
}

// DeleteHotspot implements Gateway.
func (c *Client) DeleteHotspot(ctx context.Context, id int64) error {
	var res rpc.DeleteResult
	if err := c.call(ctx, rpc.MethodDeleteHotspot, rpc.DeleteHotspotArgs{ID: id}, &res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("%s: host reported failure", rpc.MethodDeleteHotspot)
	}
	return nil
}

// SubmitQuiz implements Gateway.
func (c *Client) SubmitQuiz(ctx context.Context, gearID, hotspotID int64, answer int) (core.QuizResult, error) {
	var res core.QuizResult
	args := rpc.SubmitQuizArgs{GearID: gearID, HotspotID: hotspotID, Answer: strconv.Itoa(answer)}
	err := c.call(ctx, rpc.MethodSubmitQuiz, args, &res)
	return res, err
}

// GetLeaderboard implements Gateway.
func (c *Client) GetLeaderboard(ctx context.Context, gearID int64, limit int) ([]core.LeaderboardEntry, error) {
	var res []core.LeaderboardEntry
	err := c.call(ctx, rpc.MethodGetLeaderboard, rpc.GetLeaderboardArgs{GearID: gearID, Limit: limit}, &res)
	return res, err
}

// GenerateContent implements Gateway.
func (c *Client) GenerateContent(ctx context.Context, gearID int64, prompt string, kind core.HotspotType) (core.GeneratedContent, error) {
	var res core.GeneratedContent
	args := rpc.GenerateContentArgs{GearID: gearID, Prompt: prompt, Type: string(kind)}
	err := c.call(ctx, rpc.MethodGenerateContent, args, &res)
	return res, err
}

// SyncSession implements Gateway.
func (c *Client) SyncSession(ctx context.Context, gearID int64, pose core.Pose) ([]core.Participant, error) {
	pos, err := json.Marshal(pose.Position)
	if err != nil {
		return nil, fmt.Errorf("encoding position: %w", err)
	}
	rot, err := json.Marshal(pose.Rotation)
	if err != nil {
		return nil, fmt.Errorf("encoding rotation: %w", err)
	}

	var res []core.Participant
	args := rpc.SyncSessionArgs{GearID: gearID, Position: string(pos), Rotation: string(rot)}
	err = c.call(ctx, rpc.MethodSyncSession, args, &res)
	return res, err
}

// TrackEvent implements Gateway.
func (c *Client) TrackEvent(ctx context.Context, gearID int64, action string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding event data: %w", err)
	}
	return c.call(ctx, rpc.MethodTrackEvent, rpc.TrackEventArgs{GearID: gearID, Action: action, Data: string(raw)}, nil)
}
