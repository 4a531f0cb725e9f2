package forum

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/bluesky-social/indigo/xrpc"

	"github.com/parlor-social/parlor/util"
)

// XrpcPDSClient writes forum records to accounts' repos over XRPC. The
// client authenticates as the service account configured on the underlying
// xrpc.Client; record ownership follows the repo argument, not the auth.
type XrpcPDSClient struct {
	client *xrpc.Client
}

func NewXrpcPDSClient(host string, auth *xrpc.AuthInfo) *XrpcPDSClient {
	return &XrpcPDSClient{
		client: &xrpc.Client{
			Client: util.RobustHTTPClient(),
			Host:   host,
			Auth:   auth,
		},
	}
}

var _ PDSClient = (*XrpcPDSClient)(nil)

func (c *XrpcPDSClient) WriteRecord(ctx context.Context, identity syntax.DID, collection string, record map[string]any) (string, string, error) {
	body := map[string]any{
		"repo":       identity.String(),
		"collection": collection,
		"record":     record,
	}
	var out struct {
		Uri string `json:"uri"`
		Cid string `json:"cid"`
	}
	if err := c.client.Do(ctx, xrpc.Procedure, "application/json", "com.atproto.repo.createRecord", nil, body, &out); err != nil {
		return "", "", fmt.Errorf("creating record in %s: %w", collection, err)
	}
	return out.Uri, out.Cid, nil
}

func (c *XrpcPDSClient) DeleteRecord(ctx context.Context, identity syntax.DID, collection, rkey string) error {
	body := map[string]any{
		"repo":       identity.String(),
		"collection": collection,
		"rkey":       rkey,
	}
	if err := c.client.Do(ctx, xrpc.Procedure, "application/json", "com.atproto.repo.deleteRecord", nil, body, nil); err != nil {
		// a repo-side 404 means the record is already gone, which is the
		// state the caller wanted
		var xerr *xrpc.Error
		if errors.As(err, &xerr) && xerr.StatusCode == http.StatusNotFound {
			return nil
		}
		return fmt.Errorf("deleting record %s/%s: %w", collection, rkey, err)
	}
	return nil
}
