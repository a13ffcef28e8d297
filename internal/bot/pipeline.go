package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"receipt-ledger/internal/metrics"
	"receipt-ledger/internal/models"
	"receipt-ledger/internal/presenter"
	"receipt-ledger/internal/service"

	"go.uber.org/zap"
)

// MaxImageSize is the largest file the Bot API lets a bot download.
const MaxImageSize = 20 << 20

// Pipeline turns an uploaded image into a saved receipt.
type Pipeline struct {
	extractor  *service.ExtractionService
	receipts   *service.ReceiptService
	groups     *service.GroupService
	messenger  Messenger
	httpClient *http.Client
	now        service.Clock
	location   *time.Location
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

func NewPipeline(
	extractor *service.ExtractionService,
	receipts *service.ReceiptService,
	groups *service.GroupService,
	messenger Messenger,
	now service.Clock,
	location *time.Location,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Pipeline {
	if location == nil {
		location = time.UTC
	}
	return &Pipeline{
		extractor:  extractor,
		receipts:   receipts,
		groups:     groups,
		messenger:  messenger,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		now:        now,
		location:   location,
		metrics:    m,
		logger:     logger,
	}
}

// Process acknowledges the image, extracts and stores the receipt, and
// returns the final reply. The acknowledgement is sent here; the reply is not.
func (p *Pipeline) Process(ctx context.Context, ev Event) presenter.Message {
	if err := p.messenger.Send(ctx, ev.ChatID, presenter.Text(presenter.ImageReceived)); err != nil {
		p.logger.Warn("Failed to acknowledge image", zap.Int64("chat_id", ev.ChatID), zap.Error(err))
	}

	start := time.Now()
	receipt, err := p.process(ctx, ev)
	p.metrics.Extraction(extractionResult(err), time.Since(start))
	if err != nil {
		p.logger.Error("Receipt processing failed",
			zap.String("user_id", ev.UserID),
			zap.String("file_id", ev.Image.FileID),
			zap.Error(err))
		return presenter.Error(err)
	}
	return presenter.ReceiptSaved(receipt)
}

func (p *Pipeline) process(ctx context.Context, ev Event) (*models.Receipt, error) {
	data, err := p.download(ctx, ev.Image.FileID)
	if err != nil {
		return nil, &service.ExtractionError{Kind: service.ExtractionNetwork, Detail: "image download failed", Err: err}
	}

	draft, err := p.extractor.Extract(ctx, data, ev.Image.FileName, ev.Image.MimeType)
	if err != nil {
		return nil, err
	}

	// receipts are dated by the day they were recorded
	proposed := draft.Date
	draft.Date = p.now().In(p.location).Format(models.DateLayout)
	p.logger.Debug("Replaced extracted date", zap.String("proposed", proposed), zap.String("date", draft.Date))

	groupID, err := p.groups.CurrentGroupID(ctx, ev.UserID)
	if err != nil {
		return nil, err
	}
	return p.receipts.Save(ctx, draft, ev.UserID, groupID)
}

func (p *Pipeline) download(ctx context.Context, fileID string) ([]byte, error) {
	url, err := p.messenger.FileURL(ctx, fileID)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > MaxImageSize {
		return nil, fmt.Errorf("image exceeds %d bytes", MaxImageSize)
	}
	return data, nil
}

func extractionResult(err error) string {
	if err == nil {
		return "ok"
	}
	var extErr *service.ExtractionError
	if errors.As(err, &extErr) {
		return string(extErr.Kind)
	}
	var confErr *service.ConfigurationError
	if errors.As(err, &confErr) {
		return "not_configured"
	}
	return "error"
}
