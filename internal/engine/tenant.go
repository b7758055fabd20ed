package engine

import (
	"github.com/inboxhq/support-inbox/pkg/metrics"
)

// acceptTenant reports whether a payload scoped to payloadTenant may be
// applied while activeTenant is signed in. An empty payload tenant is a
// legacy unscoped payload and is accepted as a soft default. Rejection
// is silent filtering; callers drop the payload and move on.
func acceptTenant(payloadTenant, activeTenant string, adminOverride bool, source string) bool {
	if adminOverride {
		return true
	}
	if payloadTenant == "" {
		return true
	}
	if payloadTenant == activeTenant {
		return true
	}
	metrics.CrossTenantDropsTotal.WithLabelValues(source).Inc()
	return false
}

// acceptTenantStrict is acceptTenant without the legacy soft default.
// Newly created conversations must never be promoted when the tenant
// cannot be confirmed.
func acceptTenantStrict(payloadTenant, activeTenant string, adminOverride bool, source string) bool {
	if payloadTenant == "" {
		metrics.CrossTenantDropsTotal.WithLabelValues(source).Inc()
		return false
	}
	return acceptTenant(payloadTenant, activeTenant, adminOverride, source)
}
