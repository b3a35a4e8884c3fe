package jobs

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/procurehub/backend/internal/export"
	"github.com/procurehub/backend/internal/ingest"
	"github.com/procurehub/backend/pkg/db/models"
	"github.com/procurehub/backend/pkg/enums"
	pkgerrors "github.com/procurehub/backend/pkg/errors"
)

type importRunner interface {
	ImportFromURL(ctx context.Context, ownerID uuid.UUID, source string) (*ingest.Report, error)
	ImportBytes(ctx context.Context, ownerID uuid.UUID, data []byte) (*ingest.Report, error)
}

type exportRunner interface {
	ExportShop(ctx context.Context, ownerID uuid.UUID) (*export.Result, error)
}

type orderNotifier interface {
	SendOrderEvent(ctx context.Context, orderID int64, event string) (string, error)
}

// importPayload carries either a feed URL or the raw uploaded document.
type importPayload struct {
	URL     string `json:"url,omitempty"`
	Content string `json:"content,omitempty"`
}

type notifyJobPayload struct {
	OrderID int64  `json:"order_id"`
	Event   string `json:"event"`
}

// RegisterHandlers wires the worker's job handlers. Nil runners leave their
// job name unregistered, which fails such jobs loudly instead of silently.
func RegisterHandlers(svc Service, importer importRunner, exporter exportRunner, notifier orderNotifier) {
	if importer != nil {
		svc.Register(enums.JobPriceListImport, importHandler(importer))
	}
	if exporter != nil {
		svc.Register(enums.JobPriceListExport, exportHandler(exporter))
	}
	if notifier != nil {
		svc.Register(enums.JobOrderNotify, notifyHandler(notifier))
	}
}

func importHandler(importer importRunner) HandlerFunc {
	return func(ctx context.Context, job *models.Job) (string, error) {
		owner, err := jobOwner(job)
		if err != nil {
			return "", err
		}
		var payload importPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decoding import payload")
		}

		var report *ingest.Report
		switch {
		case payload.URL != "":
			report, err = importer.ImportFromURL(ctx, owner, payload.URL)
		case payload.Content != "":
			report, err = importer.ImportBytes(ctx, owner, []byte(payload.Content))
		default:
			return "", pkgerrors.New(pkgerrors.CodeValidation, "feed url or content is required")
		}
		if err != nil {
			return "", err
		}
		return report.String(), nil
	}
}

func exportHandler(exporter exportRunner) HandlerFunc {
	return func(ctx context.Context, job *models.Job) (string, error) {
		owner, err := jobOwner(job)
		if err != nil {
			return "", err
		}
		result, err := exporter.ExportShop(ctx, owner)
		if err != nil {
			return "", err
		}
		return result.String(), nil
	}
}

func notifyHandler(notifier orderNotifier) HandlerFunc {
	return func(ctx context.Context, job *models.Job) (string, error) {
		var payload notifyJobPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decoding notify payload")
		}
		if payload.OrderID <= 0 {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
		}
		return notifier.SendOrderEvent(ctx, payload.OrderID, payload.Event)
	}
}

// jobOwner resolves the shop owner a catalog job acts for. Import and export
// jobs are always submitted by the owner themselves.
func jobOwner(job *models.Job) (uuid.UUID, error) {
	if job.SubmitterID == nil || *job.SubmitterID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "job has no submitter")
	}
	return *job.SubmitterID, nil
}
