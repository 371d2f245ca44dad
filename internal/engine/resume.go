package engine

import (
	"log/slog"

	"github.com/go-ispider/ispider/internal/storage"
)

// ResumeReconciler applies a prior run's checkpoint to a fresh engine
// startup: domains listed in the checkpoint as finished are marked finished
// so their seeds are skipped, and any seed domain that is not in that list
// has its dump directory deleted so it restarts cleanly from scratch rather
// than resuming mid-page. Grounded on
// CrawlResumeState.remove_unfinished_domains. Only dump directories of the
// current run's seed domains are deleted; dump directories of other domains
// are left in place, and no response metadata is read, filtered or
// rewritten.
type ResumeReconciler struct {
	store  *storage.ResponseStore
	logger *slog.Logger
}

// NewResumeReconciler creates a ResumeReconciler over store.
func NewResumeReconciler(store *storage.ResponseStore, logger *slog.Logger) *ResumeReconciler {
	return &ResumeReconciler{
		store:  store,
		logger: logger.With("component", "resume_reconciler"),
	}
}

// Apply marks every domain in finishedDomains as finished in fc (so its
// seed is skipped), and purges dump state for every domain in seedDomains
// that is not in finishedDomains.
func (r *ResumeReconciler) Apply(fc *FetchController, seedDomains, finishedDomains []string) {
	finished := make(map[string]struct{}, len(finishedDomains))
	for _, d := range finishedDomains {
		finished[d] = struct{}{}
		fc.RegisterSeed(d)
		reservations := 0
		for fc.Reserve(d) {
			reservations++
		}
		for i := 0; i < reservations; i++ {
			fc.Complete(d)
		}
	}

	for _, d := range seedDomains {
		if _, ok := finished[d]; ok {
			continue
		}
		if err := r.store.Purge(d); err != nil {
			r.logger.Warn("failed to purge unfinished domain dump", "domain", d, "error", err)
			continue
		}
		r.logger.Info("purged unfinished domain for clean restart", "domain", d)
	}
}
