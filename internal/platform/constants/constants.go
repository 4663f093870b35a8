// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, retry budgets, reader limits, and cross-cutting keys
that are shared between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Content Store: Commit and queue retry budgets.
  - Reader: Page caps, paging, preload and presence timing.
  - Maintenance: Workflow file names and deploy polling.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "mangashelf"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 30 * time.Second

	// DefaultWriteTimeout covers admin uploads, which transform and commit in-request.
	DefaultWriteTimeout = 5 * time.Minute

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for reader requests.
	GlobalRequestTimeout = 60 * time.Second

	// AdminRequestTimeout is the deadline for admin mutation requests.
	AdminRequestTimeout = 4 * time.Minute

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second

	// MaxUploadBytes caps a multipart admin upload.
	MaxUploadBytes = 256 << 20

	// MaxAttachmentBytes caps a comment attachment.
	MaxAttachmentBytes = 32 << 20
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Content Store

const (
	// CommitAttempts is the number of full blob-tree-commit-ref sequences tried.
	CommitAttempts = 5

	// CommitBackoffBase is multiplied by 2^attempt between commit attempts.
	CommitBackoffBase = 100 * time.Millisecond

	// CommitJitterMax bounds the random jitter added to every commit backoff.
	CommitJitterMax = 500 * time.Millisecond

	// UploadAttempts is the outer retry budget around an upload commit.
	UploadAttempts = 3

	// UploadRetryPause is the fixed pause between outer upload attempts.
	UploadRetryPause = 1 * time.Second

	// QueueAttempts is the read-modify-write budget for the pending-deletes file.
	QueueAttempts = 3

	// StoreHTTPTimeout bounds a single content store request.
	StoreHTTPTimeout = 30 * time.Second

	// FileMode is the git mode for regular files.
	FileMode = "100644"
)

// # Reader

const (
	// MaxPages is the hard cap on pages enumerated per chapter.
	MaxPages = 80

	// MaxParts is the hard cap on split parts probed per page. Uploads that
	// would need more are rejected.
	MaxParts = 20

	// MaxSourcePixels caps the pixel count of an uploaded image.
	MaxSourcePixels = 120_000_000

	// ChaptersPerPage is the chapter list page size.
	ChaptersPerPage = 5

	// LocalCapacity is the number of live chapters the content store should hold.
	LocalCapacity = 120

	// RecentSeriesCount is the number of series shown on the admin dashboard.
	RecentSeriesCount = 4

	// PageExt is the extension of every stored page.
	PageExt = ".webp"

	// PreloadDelay is the pause before the next chapter is preloaded.
	PreloadDelay = 1 * time.Second

	// PreloadTimeout bounds a detached preload.
	PreloadTimeout = 2 * time.Minute

	// ProbeTimeout bounds a single existence probe.
	ProbeTimeout = 5 * time.Second

	// ProbePresentTTL is how long a found page is remembered.
	ProbePresentTTL = 10 * time.Minute

	// ProbeAbsentTTL is how long a missing page is remembered.
	ProbeAbsentTTL = 15 * time.Second

	// ProbeMemoCapacity bounds the remembered probe answers.
	ProbeMemoCapacity = 50000
)

// # Presence

const (
	// PresenceStartupTimeout is the longest startup waits for the presence backend.
	PresenceStartupTimeout = 3 * time.Second

	// PresencePollInterval is how often room and global counts are pushed.
	PresencePollInterval = 60 * time.Second

	// PresenceTTL is how long a heartbeat keeps a viewer in a room.
	PresenceTTL = 2 * PresencePollInterval

	// ViewCooldown is the window during which repeat views by a viewer are ignored.
	ViewCooldown = 24 * time.Hour
)

// # Maintenance

const (
	// MaintenanceWorkflow archives chapters and drains the pending-deletes queue.
	MaintenanceWorkflow = "archive_chapters.yml"

	// DeployWorkflow publishes the site.
	DeployWorkflow = "deploy.yml"

	// DeployRunName is the run name the deploy watcher looks for.
	DeployRunName = "Deploy to Cloudflare Pages"

	// DeployMaxPolls is the number of status polls before giving up.
	DeployMaxPolls = 60

	// DeployPollInterval is the pause between polls while queued.
	DeployPollInterval = 2 * time.Second

	// DeployPollIntervalRunning is the pause between polls while in progress.
	DeployPollIntervalRunning = 3 * time.Second

	// RecentRunsLimit is the page size when listing workflow runs.
	RecentRunsLimit = 5
)

// # Audit

const (
	// AuditMemoryCapacity is how many entries the in-process audit trail keeps.
	AuditMemoryCapacity = 200

	// AuditDefaultLimit is the page size of the audit listing.
	AuditDefaultLimit = 50
)

// # Authentication

const (
	// AuthIssuer is the standard 'iss' claim in JWTs.
	AuthIssuer = "mangashelf"

	// AdminUserID is the subject of admin tokens.
	AdminUserID = "admin"

	// UploaderUserID is the subject of uploader tokens.
	UploaderUserID = "uploader"

	// AdminTokenTTL is how long an admin access token stays valid.
	AdminTokenTTL = 12 * time.Hour
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
	HeaderViewerID      = "X-Viewer-ID"
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldMeta    = "meta"
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldItems   = "items"
	FieldTotal   = "total"
	FieldMessage = "message"
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	RedisKeyManifest        = "library:manifest"
	RedisPrefixRoom         = "presence:room:"
	RedisKeyConnections     = "presence:connections"
	RedisPrefixViews        = "views:"
	RedisPrefixViewCooldown = "views:seen:"
)
