// Command dwnserver is a minimal demo HTTP transport over a Dwn node. It
// is not a core component: SPEC_FULL.md places transport/HTTP surfaces
// out of scope, so this binary exists only to show the Go API wired up
// as JSON endpoints, not to define a wire protocol of its own.
package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"dwn.evalgo.org/config"
	"dwn.evalgo.org/dwn"
	"dwn.evalgo.org/index"
	"dwn.evalgo.org/protocol"
	"dwn.evalgo.org/record"
	"dwn.evalgo.org/version"
)

type writeRequest struct {
	Descriptor    record.Descriptor  `json:"descriptor"`
	DataBase64    string             `json:"dataBase64,omitempty"`
	Authorization *dwn.Authorization `json:"authorization,omitempty"`
}

type deleteRequest struct {
	MessageCid    string             `json:"messageCid"`
	RawBase64     string             `json:"rawBase64"`
	Authorization *dwn.Authorization `json:"authorization,omitempty"`
}

type queryRequest struct {
	Schema            string             `json:"schema,omitempty"`
	Protocol          string             `json:"protocol,omitempty"`
	ProtocolPath      string             `json:"protocolPath,omitempty"`
	ProtocolRole      string             `json:"protocolRole,omitempty"`
	RoleScope         string             `json:"roleScope,omitempty"`
	ContextID         string             `json:"contextId,omitempty"`
	PermissionGrantID string             `json:"permissionGrantId,omitempty"`
	Authorization     *dwn.Authorization `json:"authorization,omitempty"`
}

func main() {
	opts := config.FromEnv("DWN")
	if err := opts.Validate(); err != nil {
		log.Fatalf("dwnserver: invalid configuration: %v", err)
	}

	node, err := dwn.New(opts)
	if err != nil {
		log.Fatalf("dwnserver: %v", err)
	}
	defer node.Close()

	e := echo.New()
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.New().String() },
	}))
	e.Use(middleware.Recover())

	e.POST("/tenants/:tenantDid/records", handleWrite(node))
	e.GET("/tenants/:tenantDid/records/:recordId", handleRead(node))
	e.DELETE("/tenants/:tenantDid/records/:recordId", handleDelete(node))
	e.GET("/tenants/:tenantDid/records", handleQuery(node))
	e.GET("/version", handleVersion)

	port := os.Getenv("DWN_HTTP_PORT")
	if port == "" {
		port = "8080"
	}
	log.Fatal(e.Start(":" + port))
}

func handleVersion(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"version": version.GetDWNVersion()})
}

func handleWrite(node *dwn.Dwn) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req writeRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, errBody(err))
		}
		var data []byte
		if req.DataBase64 != "" {
			decoded, err := base64.StdEncoding.DecodeString(req.DataBase64)
			if err != nil {
				return c.JSON(http.StatusBadRequest, errBody(err))
			}
			data = decoded
		}

		var dataReader io.Reader
		if len(data) > 0 {
			dataReader = bytes.NewReader(data)
		}
		reply, err := node.Write(c.Request().Context(), c.Param("tenantDid"), req.Descriptor, dataReader, req.Authorization)
		if err != nil {
			return statusError(c, err)
		}
		return c.JSON(reply.Status.Code, map[string]string{"messageCid": reply.PaginationMessageCid})
	}
}

func handleRead(node *dwn.Dwn) echo.HandlerFunc {
	return func(c echo.Context) error {
		var auth *dwn.Authorization
		if header := c.Request().Header.Get("X-Dwn-Authorization"); header != "" {
			a, err := decodeAuthHeader(header)
			if err != nil {
				return c.JSON(http.StatusBadRequest, errBody(err))
			}
			auth = a
		}

		reply, err := node.Read(c.Request().Context(), c.Param("tenantDid"), c.Param("recordId"), auth)
		if err != nil {
			return statusError(c, err)
		}
		return c.JSONBlob(reply.Status.Code, joinEntries(reply.Entries))
	}
}

func handleDelete(node *dwn.Dwn) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req deleteRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, errBody(err))
		}
		raw, err := base64.StdEncoding.DecodeString(req.RawBase64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errBody(err))
		}

		reply, err := node.Delete(c.Request().Context(), c.Param("tenantDid"), c.Param("recordId"), req.MessageCid, raw, req.Authorization)
		if err != nil {
			return statusError(c, err)
		}
		return c.NoContent(reply.Status.Code)
	}
}

func handleQuery(node *dwn.Dwn) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req queryRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, errBody(err))
		}

		filter := index.Filter{}
		if req.Schema != "" {
			filter["schema"] = index.EqualFilter{Value: req.Schema}
		}
		if req.Protocol != "" {
			filter["protocol"] = index.EqualFilter{Value: req.Protocol}
		}
		if req.ProtocolPath != "" {
			filter["protocolPath"] = index.EqualFilter{Value: req.ProtocolPath}
		}

		limit := 50
		if raw := c.QueryParam("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil {
				limit = n
			}
		}

		roleScope := protocol.GlobalRole
		if req.RoleScope == "context" {
			roleScope = protocol.ContextRole
		}

		reply, err := node.Query(c.Request().Context(), c.Param("tenantDid"), dwn.QueryParams{
			Filters:           []index.Filter{filter},
			Limit:             limit,
			ProtocolRole:      req.ProtocolRole,
			RoleScope:         roleScope,
			Protocol:          req.Protocol,
			ProtocolPath:      req.ProtocolPath,
			ContextID:         req.ContextID,
			PermissionGrantID: req.PermissionGrantID,
			Auth:              req.Authorization,
		})
		if err != nil {
			return statusError(c, err)
		}
		return c.JSONBlob(reply.Status.Code, joinEntries(reply.Entries))
	}
}

// decodeAuthHeader unpacks a base64-encoded JSON Authorization from the
// X-Dwn-Authorization header, the demo's stand-in for a real Authorization
// wire field since this transport isn't part of the core spec.
func decodeAuthHeader(header string) (*dwn.Authorization, error) {
	raw, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return nil, err
	}
	var auth dwn.Authorization
	if err := json.Unmarshal(raw, &auth); err != nil {
		return nil, err
	}
	return &auth, nil
}

func statusError(c echo.Context, err error) error {
	return c.JSON(http.StatusInternalServerError, errBody(err))
}

func errBody(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}

func joinEntries(entries [][]byte) []byte {
	out := []byte("[")
	for i, e := range entries {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, e...)
	}
	return append(out, ']')
}
