// Package client 是主机端访问签名设备的方式。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sui-signer/internal/device"
	"sui-signer/internal/handler/request"
	"sui-signer/pkg/errno"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// HTTPTransceiver 通过 sui-signer serve 暴露的 /apdu 接口发送 APDU
type HTTPTransceiver struct {
	url    string
	client *http.Client
}

var _ device.Transceiver = (*HTTPTransceiver)(nil)

// NewHTTPTransceiver base 为服务地址，例如 http://127.0.0.1:5000
func NewHTTPTransceiver(base string, client *http.Client) *HTTPTransceiver {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPTransceiver{url: strings.TrimRight(base, "/") + "/apdu", client: client}
}

func (t *HTTPTransceiver) Transceive(ctx context.Context, apdu []byte) ([]byte, error) {
	body, err := json.Marshal(request.APDURequest{APDU: hexutil.Encode(apdu)})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求设备失败: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("设备返回 HTTP %d", resp.StatusCode)
	}

	var out struct {
		Code    int                  `json:"code"`
		Message string               `json:"msg"`
		Data    request.APDUResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("解析设备响应失败: %w", err)
	}
	if out.Code != errno.OK.Code {
		return nil, errno.Errno{Code: out.Code, Message: out.Message}
	}
	return hexutil.Decode(out.Data.Response)
}
