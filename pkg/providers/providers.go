// Package providers holds the narrow HTTP clients for the pipeline's
// external collaborators: search, LLM, image generation and the CMS. Each
// client maps transport failures onto the stage error taxonomy; stages
// decide what to do with them (usually: fall back to synthetic content).
package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/contentline/contentline/pkg/models"
)

// ClassifyTransportError maps a failed outbound call to a stage error.
// Deadline expiry becomes PROVIDER_TIMEOUT; everything else at the transport
// level is PROVIDER_UNAVAILABLE.
func ClassifyTransportError(provider string, err error) *models.StageError {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.WrapStageError(models.CodeProviderTimeout,
			fmt.Sprintf("%s call exceeded its deadline", provider), err)
	}

	return models.WrapStageError(models.CodeProviderUnavailable,
		fmt.Sprintf("%s is unreachable: %v", provider, err), err)
}

// ClassifyStatus maps a non-2xx response to a stage error. 429 becomes
// RATE_LIMITED; auth rejections use the supplied authCode (WP_AUTH_FAILED
// for the CMS, PROVIDER_UNAVAILABLE elsewhere).
func ClassifyStatus(provider string, statusCode int, authCode models.ErrorCode) *models.StageError {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return models.NewStageError(models.CodeRateLimited,
			fmt.Sprintf("%s reported rate limiting (429)", provider))
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return models.NewStageError(authCode,
			fmt.Sprintf("%s rejected credentials (status %d)", provider, statusCode))
	default:
		return models.NewStageError(models.CodeProviderUnavailable,
			fmt.Sprintf("%s returned status %d", provider, statusCode))
	}
}
