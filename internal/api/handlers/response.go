// Package handlers 共用的回應與請求解析工具
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sazonbot/internal/pkg/common"
)

// WriteError 將錯誤轉為 {"code","message","details"}；details 只在 debug 模式輸出
func WriteError(c *gin.Context, err error) {
	var ce *common.CustomError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		ce = common.ErrGatewayTimeout.Wrap(err)
	default:
		ce = common.AsCustomError(err)
	}

	resp := common.ErrorResponse{Code: ce.Code, Message: ce.Message}
	if gin.IsDebugging() && ce.Err != nil {
		resp.Details = ce.Err.Error()
	}
	if ce.Status >= 500 {
		common.LogError("請求處理失敗",
			zap.String("code", ce.Code),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(ce.Status, resp)
}

// BindJSON 嚴格解析請求 JSON（禁止未知欄位），失敗時回傳 ValidationError；
// 超過大小限制時回傳 ErrRequestTooLarge
func BindJSON(c *gin.Context, v interface{}) error {
	if err := common.DecodeJSONStrict(c.Request.Body, v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return common.ErrRequestTooLarge.Wrap(err)
		}
		if errors.Is(err, io.EOF) {
			return common.NewValidationError("request body is empty")
		}
		return common.NewValidationError("invalid JSON: " + err.Error())
	}
	return nil
}
