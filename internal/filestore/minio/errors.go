package minio

import (
	"context"
	"errors"
	"net/http"

	miniogo "github.com/minio/minio-go/v7"

	"github.com/framesync/framesync/internal/errs"
)

// mapError folds an SDK error into the errs taxonomy. S3 error codes are
// checked before HTTP status because some backends report code-level
// failures inside 2xx responses.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.KindTimeout, msg, err)
	}

	var resp miniogo.ErrorResponse
	if errors.As(err, &resp) {
		switch resp.Code {
		case "NoSuchBucket", "NoSuchKey":
			return errs.Wrap(errs.KindNotFound, msg, err)
		case "InvalidBucketName", "InvalidObjectName", "KeyTooLongError":
			return errs.Wrap(errs.KindInvalidInput, msg, err)
		case "RequestTimeout", "SlowDown":
			return errs.Wrap(errs.KindTimeout, msg, err)
		}
		switch resp.StatusCode {
		case http.StatusNotFound:
			return errs.Wrap(errs.KindNotFound, msg, err)
		case http.StatusBadRequest:
			return errs.Wrap(errs.KindInvalidInput, msg, err)
		}
	}

	return errs.Wrap(errs.KindConnectionFailed, msg, err)
}
