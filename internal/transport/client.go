// Package transport implements the folder-invite remote calls over HTTP/JSON.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nikbrunner/folderlink/internal/invite"
	"github.com/nikbrunner/folderlink/internal/model"
)

const (
	methodExportInvite  = "communities.exportInvite"
	methodGetInvites    = "communities.getExportedInvites"
	methodEditInvite    = "communities.editExportedInvite"
	methodDeleteInvite  = "communities.deleteExportedInvite"
	methodCheckInvite   = "communities.checkInvite"
	methodJoinInvite    = "communities.joinInvite"
	methodGetUpdates    = "communities.getUpdates"
	methodJoinUpdates   = "communities.joinUpdates"
	methodHideUpdates   = "communities.hideUpdates"
	defaultTimeout      = 30 * time.Second
	requestIDHeader     = "X-Request-Id"
	maxErrorBodyInError = 512
)

var (
	ErrAPIRequest      = errors.New("API request failed")
	ErrInvalidResponse = errors.New("invalid API response")
)

// Client calls the folder-invite API. It implements invite.Transport.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ invite.Transport = (*Client)(nil)

// Params holds parameters for creating a Client.
type Params struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration // ignored when HTTPClient is set
	HTTPClient *http.Client
}

// New creates a Client.
func New(params Params) *Client {
	httpClient := params.HTTPClient
	if httpClient == nil {
		timeout := params.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(params.BaseURL, "/"),
		token:      params.Token,
		httpClient: httpClient,
	}
}

// call posts reqBody to method and returns the raw response body.
func (c *Client) call(ctx context.Context, method string, reqBody any) ([]byte, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAPIRequest, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			code := apiErr.Code
			if code == 0 {
				code = resp.StatusCode
			}
			return nil, &invite.RPCError{Code: code, Description: apiErr.Message}
		}
		if len(body) > maxErrorBodyInError {
			body = body[:maxErrorBodyInError]
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrAPIRequest, resp.StatusCode, string(body))
	}

	return body, nil
}

// callJSON is call followed by decoding the response into out.
func (c *Client) callJSON(ctx context.Context, method string, reqBody, out any) error {
	body, err := c.call(ctx, method, reqBody)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidResponse, method, err)
	}
	return nil
}

func (c *Client) ExportInvite(ctx context.Context, folder invite.FolderRef, title string, peers []invite.InputPeer) (*invite.ExportedFolder, error) {
	var resp exportInviteResponse
	err := c.callJSON(ctx, methodExportInvite, exportInviteRequest{
		Community: community{FilterID: folder.FilterID},
		Title:     title,
		Peers:     toInputPeers(peers),
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &invite.ExportedFolder{
		Filter: resp.Filter.toFolder(),
		Invite: resp.Invite.toInvite(),
	}, nil
}

func (c *Client) GetExportedInvites(ctx context.Context, folder invite.FolderRef) (*invite.ExportedInvites, error) {
	var resp exportedInvitesResponse
	if err := c.callJSON(ctx, methodGetInvites, communityRequest{Community: community{FilterID: folder.FilterID}}, &resp); err != nil {
		return nil, err
	}
	chats, err := toChats(resp.Chats)
	if err != nil {
		return nil, err
	}
	invites := make([]invite.ExportedInvite, len(resp.Invites))
	for i, inv := range resp.Invites {
		invites[i] = inv.toInvite()
	}
	return &invite.ExportedInvites{
		Invites: invites,
		Chats:   chats,
		Users:   toUsers(resp.Users),
	}, nil
}

func (c *Client) EditExportedInvite(ctx context.Context, req invite.EditRequest) (*invite.ExportedInvite, error) {
	body := editInviteRequest{
		Flags:     int32(req.Flags),
		Community: community{FilterID: req.Folder.FilterID},
		Slug:      req.Slug,
	}
	if req.Flags.Has(invite.EditTitle) {
		body.Title = req.Title
	}
	if req.Flags.Has(invite.EditPeers) {
		body.Peers = toInputPeers(req.Peers)
	}

	var resp exportedInvite
	if err := c.callJSON(ctx, methodEditInvite, body, &resp); err != nil {
		return nil, err
	}
	result := resp.toInvite()
	return &result, nil
}

func (c *Client) DeleteExportedInvite(ctx context.Context, folder invite.FolderRef, slug string) error {
	return c.callJSON(ctx, methodDeleteInvite, deleteInviteRequest{
		Community: community{FilterID: folder.FilterID},
		Slug:      slug,
	}, nil)
}

func (c *Client) CheckInvite(ctx context.Context, slug string) (invite.CheckResult, error) {
	var resp checkInviteResponse
	if err := c.callJSON(ctx, methodCheckInvite, slugRequest{Slug: slug}, &resp); err != nil {
		return nil, err
	}
	return resp.toResult()
}

func (c *Client) JoinInvite(ctx context.Context, slug string, peers []invite.InputPeer) (model.Updates, error) {
	body, err := c.call(ctx, methodJoinInvite, joinInviteRequest{Slug: slug, Peers: toInputPeers(peers)})
	if err != nil {
		return model.Updates{}, err
	}
	return rawUpdates(body), nil
}

func (c *Client) GetUpdates(ctx context.Context, folder invite.FolderRef) (*invite.FolderUpdates, error) {
	var resp updatesResponse
	if err := c.callJSON(ctx, methodGetUpdates, communityRequest{Community: community{FilterID: folder.FilterID}}, &resp); err != nil {
		return nil, err
	}
	chats, err := toChats(resp.Chats)
	if err != nil {
		return nil, err
	}
	return &invite.FolderUpdates{
		MissingPeers: toPeerIDs(resp.MissingPeers),
		Chats:        chats,
		Users:        toUsers(resp.Users),
	}, nil
}

func (c *Client) JoinUpdates(ctx context.Context, folder invite.FolderRef, peers []invite.InputPeer) (model.Updates, error) {
	body, err := c.call(ctx, methodJoinUpdates, joinUpdatesRequest{
		Community: community{FilterID: folder.FilterID},
		Peers:     toInputPeers(peers),
	})
	if err != nil {
		return model.Updates{}, err
	}
	return rawUpdates(body), nil
}

func (c *Client) HideUpdates(ctx context.Context, folder invite.FolderRef) error {
	return c.callJSON(ctx, methodHideUpdates, communityRequest{Community: community{FilterID: folder.FilterID}}, nil)
}
