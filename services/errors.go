package services

import "errors"

var (
	ErrSiteNotFound         = errors.New("site not found")
	ErrSiteBusy             = errors.New("site check already in progress")
	ErrNotifierUnconfigured = errors.New("email notifier is not configured")
	// ErrCheckAborted means the run was cancelled before the probe finished;
	// the site's recorded state is left untouched.
	ErrCheckAborted = errors.New("check aborted before the probe completed")
)
