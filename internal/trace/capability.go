package trace

import (
	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-fwtrace/internal/interfaces"
	"github.com/deploymenttheory/go-fwtrace/internal/types"
)

// IsTraceSupported reports whether the device's id and revision carry the
// event-trace firmware feature. Enumeration failures are logged and treated
// as unsupported rather than surfaced to the caller.
func IsTraceSupported(identity interfaces.DeviceIdentity, log *logrus.Entry) bool {
	devID, err := identity.DeviceID()
	if err != nil {
		log.WithError(err).Error("failed to read device id")
		return false
	}

	rev, err := identity.Revision()
	if err != nil {
		log.WithError(err).Error("failed to read device revision")
		return false
	}

	log.Debugf("Dev id: 0x%x, Dev rev: 0x%x", devID, rev)
	return devID == types.TraceSupportedDeviceID && rev >= types.TraceSupportedMinRevision
}
