package request

// APDURequest 一条原始 APDU，0x 前缀可选
type APDURequest struct {
	APDU string `json:"apdu" binding:"required,apdu"`
}

// APDUResponse data || SW 的十六进制
type APDUResponse struct {
	Response string `json:"response"`
	SW       string `json:"sw"`
}
