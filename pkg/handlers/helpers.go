package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"erp-admin-console/pkg/apiclient"
	"erp-admin-console/pkg/services"

	"github.com/gin-gonic/gin"
)

// errorStatus 操作エラーをHTTPステータスに変換
func errorStatus(err error) int {
	var validation *services.ValidationError
	var failure *apiclient.Failure
	switch {
	case errors.As(err, &validation),
		errors.Is(err, services.ErrUnknownField),
		errors.Is(err, services.ErrUnknownCollection),
		errors.Is(err, services.ErrEmptyQuery),
		errors.Is(err, services.ErrNotConfirmed):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrProductNotFound),
		errors.Is(err, services.ErrNoActiveEdit):
		return http.StatusNotFound
	case errors.Is(err, services.ErrQueryInFlight),
		errors.Is(err, services.ErrEditInProgress):
		return http.StatusConflict
	case errors.As(err, &failure):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError エラーレスポンスを返す
func respondError(c *gin.Context, err error, message string) {
	if message == "" {
		message = err.Error()
	}
	c.JSON(errorStatus(err), gin.H{
		"success": false,
		"error":   message,
	})
}

// paramID パスパラメータ:idを整数として取得
func paramID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid product id: " + c.Param("id")})
		return 0, false
	}
	return id, true
}
