package accountapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.uber.org/zap"

	"GreenNest/internal/wizard"
	"GreenNest/pkg/errors"
	"GreenNest/pkg/logger"
)

const defaultTimeout = 3 * time.Second

// Client 远程账户服务，同时提供文件上传，实现 wizard.AccountAPI 与 wizard.Uploader
type Client struct {
	baseURL string
	timeout time.Duration
	http    *client.Client
}

var (
	_ wizard.AccountAPI = (*Client)(nil)
	_ wizard.Uploader   = (*Client)(nil)
)

func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hc, err := client.NewClient(
		client.WithDialTimeout(timeout),
		client.WithClientReadTimeout(timeout),
		client.WithWriteTimeout(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create account api client: %w", err)
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		timeout: timeout,
		http:    hc,
	}, nil
}

// 服务端统一的响应外壳
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type availability struct {
	Available bool `json:"available"`
}

func (c *Client) CheckEmailAvailability(ctx context.Context, email string) (bool, error) {
	return c.availability(ctx, "email-availability", "email", email)
}

func (c *Client) CheckNicknameAvailability(ctx context.Context, nickname string) (bool, error) {
	return c.availability(ctx, "nickname-availability", "nickname", nickname)
}

func (c *Client) availability(ctx context.Context, path, param, value string) (bool, error) {
	endpoint := c.baseURL + "/v1/accounts/" + path + "?" + url.Values{param: {value}}.Encode()

	req, resp := protocol.AcquireRequest(), protocol.AcquireResponse()
	defer protocol.ReleaseRequest(req)
	defer protocol.ReleaseResponse(resp)

	req.SetRequestURI(endpoint)
	req.SetMethod(consts.MethodGet)
	req.Header.Set("Accept", "application/json")

	var out availability
	if err := c.do(ctx, req, resp, &out); err != nil {
		return false, err
	}
	return out.Available, nil
}

// CreateAccount 4xx 业务错误转成 ok=false，网络错误与 5xx 作为 error 返回
func (c *Client) CreateAccount(ctx context.Context, payload wizard.CreateAccountRequest) (wizard.CreateAccountResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return wizard.CreateAccountResponse{}, err
	}

	req, resp := protocol.AcquireRequest(), protocol.AcquireResponse()
	defer protocol.ReleaseRequest(req)
	defer protocol.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + "/v1/accounts")
	req.SetMethod(consts.MethodPost)
	req.Header.SetContentTypeBytes([]byte(consts.MIMEApplicationJSON))
	req.Header.Set("Accept", "application/json")
	req.SetBody(body)

	var out wizard.CreateAccountResponse
	err = c.do(ctx, req, resp, &out)
	if err == nil {
		return out, nil
	}
	if def, ok := errors.As(err); ok && resp.StatusCode() < consts.StatusInternalServerError {
		return wizard.CreateAccountResponse{OK: false, Message: def.Message}, nil
	}
	return wizard.CreateAccountResponse{}, err
}

// Upload multipart 上传到 /v1/files，字段名 file
func (c *Client) Upload(ctx context.Context, file wizard.ImageFile) (wizard.UploadResult, error) {
	req, resp := protocol.AcquireRequest(), protocol.AcquireResponse()
	defer protocol.ReleaseRequest(req)
	defer protocol.ReleaseResponse(resp)

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	req.SetRequestURI(c.baseURL + "/v1/files")
	req.SetMethod(consts.MethodPost)
	req.Header.Set("Accept", "application/json")
	req.SetMultipartField("file", file.Filename, contentType, bytes.NewReader(file.Data))

	var out wizard.UploadResult
	if err := c.do(ctx, req, resp, &out); err != nil {
		return wizard.UploadResult{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, req *protocol.Request, resp *protocol.Response, out interface{}) error {
	start := time.Now()
	if err := c.http.DoTimeout(ctx, req, resp, c.timeout); err != nil {
		logger.Logger.Warn("Account API request failed",
			zap.String("method", string(req.Method())),
			zap.String("path", string(req.URI().Path())),
			zap.Error(err),
		)
		return fmt.Errorf("account api request failed: %w", err)
	}

	status := resp.StatusCode()
	logger.Logger.Debug("Account API response",
		zap.String("method", string(req.Method())),
		zap.String("path", string(req.URI().Path())),
		zap.Int("status", status),
		zap.Duration("elapsed", time.Since(start)),
	)

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("account api returned status %d with unreadable body: %w", status, err)
	}

	if status >= consts.StatusBadRequest {
		if env.Error == nil {
			return fmt.Errorf("account api returned status %d", status)
		}
		def := errors.Get(env.Error.Code).WithMessage(env.Error.Message)
		if status >= consts.StatusInternalServerError {
			return fmt.Errorf("account api returned status %d: %w", status, def)
		}
		return def
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode account api response: %w", err)
	}
	return nil
}
