package worker

import (
	"context"
	"path/filepath"

	"dreambatch/pkg/classify"
	"dreambatch/pkg/genapi"
	"dreambatch/pkg/session"
)

// ProcessResult is the terminal state of one prompt.
type ProcessResult int

// Prompt processing results.
const (
	// Completed means at least one attempt succeeded and all returned
	// images were scheduled for saving.
	Completed ProcessResult = iota
	// Aborted means the API rejected the request itself; remaining
	// credentials were not tried.
	Aborted
	// SessionsExhausted means every credential in the pool was tried for
	// this prompt without success.
	SessionsExhausted
	// Stopped means the running flag was cleared between attempts.
	Stopped
)

// String returns the result name for log output.
func (r ProcessResult) String() string {
	switch r {
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	case SessionsExhausted:
		return "sessions exhausted"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// callParams are the request settings read at call time, so mid-run
// ratio/model changes take effect on the next attempt.
type callParams struct {
	Model      string
	Ratio      string
	Resolution string
	Endpoint   string
}

// processor drives one prompt through session attempts until success,
// pool exhaustion, or a hard abort. It holds no state beyond the single
// call; attempt bookkeeping lives here, the cursor lives in the pool.
type processor struct {
	pool     *session.Pool
	gen      genapi.Generator
	download genapi.Downloader
	running  func() bool
	params   func() callParams
	emit     func(level, format string, args ...any)
	outDir   string
}

// process runs the attempt loop for a single prompt. The pool cursor is
// left wherever the final attempt put it; the next prompt starts there.
func (p *processor) process(ctx context.Context, prompt string) ProcessResult {
	attempts := 0
	for p.running() && attempts < p.pool.Size() {
		credential := p.pool.Current()
		p.emit(LevelInfo, "trying session %d/%d", p.pool.Cursor()+1, p.pool.Size())

		params := p.params()
		result := p.gen.Generate(ctx, genapi.Request{
			Model:      params.Model,
			Prompt:     prompt,
			Ratio:      params.Ratio,
			Resolution: params.Resolution,
			Credential: credential,
			Endpoint:   params.Endpoint,
		})

		outcome := classify.Classify(result.Err, result.StatusCode, result.Body)
		switch outcome.Class {
		case classify.Success:
			p.emit(LevelInfo, "got %d images", len(outcome.Images))
			p.saveImages(ctx, prompt, outcome.Images)
			return Completed

		case classify.SwitchSession:
			p.emit(LevelWarn, "attempt failed (%s), rotating session", outcome.Detail)
			p.pool.Advance()
			attempts++

		case classify.Abort:
			p.emit(LevelError, "request rejected (%s), skipping prompt", outcome.Detail)
			return Aborted
		}
	}

	if !p.running() {
		return Stopped
	}
	return SessionsExhausted
}

// saveImages schedules every returned image for download in order.
// Individual download failures are logged and do not fail the prompt.
func (p *processor) saveImages(ctx context.Context, prompt string, images []classify.Image) {
	for i, img := range images {
		if img.URL == "" {
			continue
		}
		savePath := filepath.Join(p.outDir, ImageRelPath(prompt, i+1, img.URL))
		if err := p.download.Download(ctx, img.URL, savePath); err != nil {
			p.emit(LevelWarn, "failed to save %s: %v", filepath.Base(savePath), err)
			continue
		}
		p.emit(LevelInfo, "saved %s", filepath.Base(savePath))
	}
}
