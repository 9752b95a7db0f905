package pipeline

import (
	"github.com/rotisserie/eris"

	"github.com/presenca/discovery-audit/internal/model"
	"github.com/presenca/discovery-audit/pkg/anthropic"
	"github.com/presenca/discovery-audit/pkg/places"
)

// errInternal is the public face of a recovered panic. The real cause stays
// in the logs only.
var errInternal = eris.New("internal error during audit processing")

// isFatalStage reports whether a stage error must fail the whole audit
// instead of degrading to the stage default.
func isFatalStage(err error) bool {
	return model.IsNotFound(err) ||
		places.IsQuotaError(err) ||
		anthropic.IsFatal(err)
}

// failureMessage renders the error message persisted on a failed audit.
// Provider exhaustion and lookup misses surface verbatim so the caller can
// act on them; anything else stays generic.
func failureMessage(err error) string {
	if eris.Is(err, errInternal) {
		return errInternal.Error()
	}
	if isFatalStage(err) {
		return err.Error()
	}
	return "audit failed: " + err.Error()
}
