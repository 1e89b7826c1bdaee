package crust

type GatewayStatus int32

const (
	GatewayStatusDisconnected GatewayStatus = iota
	GatewayStatusConnecting
	GatewayStatusIdentifying
	GatewayStatusResuming
	GatewayStatusConnected
	GatewayStatusReady
	GatewayStatusReconnecting
)

func (status GatewayStatus) String() string {
	switch status {
	case GatewayStatusDisconnected:
		return "Disconnected"
	case GatewayStatusConnecting:
		return "Connecting"
	case GatewayStatusIdentifying:
		return "Identifying"
	case GatewayStatusResuming:
		return "Resuming"
	case GatewayStatusConnected:
		return "Connected"
	case GatewayStatusReady:
		return "Ready"
	case GatewayStatusReconnecting:
		return "Reconnecting"
	default:
		return "Unknown"
	}
}
