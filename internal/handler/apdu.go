package handler

import (
	"fmt"
	"strings"
	"sync"

	"sui-signer/internal/handler/request"
	"sui-signer/internal/handler/response"
	"sui-signer/pkg/errno"
	"sui-signer/pkg/logger"
	"sui-signer/pkg/validator"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Device 处理一条 APDU，返回 data || SW
type Device interface {
	HandleAPDU(apdu []byte) []byte
}

// APDUHandler 把设备暴露为 HTTP 接口。设备一次只处理一条 APDU。
type APDUHandler struct {
	mu  sync.Mutex
	dev Device
}

func NewAPDUHandler(dev Device) *APDUHandler {
	validator.Init()
	return &APDUHandler{dev: dev}
}

// Exchange 转发一条 APDU: POST /apdu {"apdu": "<hex>"}
func (h *APDUHandler) Exchange(c *gin.Context) {
	var req request.APDURequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, fmt.Errorf("%w: %s", errno.ErrBind, validator.GetErrorMsg(err)))
		return
	}
	apdu, err := decodeHex(req.APDU)
	if err != nil {
		response.Error(c, fmt.Errorf("%w: %v", errno.ErrBind, err))
		return
	}

	h.mu.Lock()
	resp := h.dev.HandleAPDU(apdu)
	h.mu.Unlock()

	sw := resp[len(resp)-2:]
	logger.Debug("APDU 应答", zap.Int("len", len(apdu)), zap.String("sw", hexutil.Encode(sw)))
	response.Success(c, request.APDUResponse{
		Response: hexutil.Encode(resp),
		SW:       hexutil.Encode(sw),
	})
}

func decodeHex(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	return hexutil.Decode(s)
}
