package domain

// Lane identifies one asset channel. The zero Asset is the native currency;
// anything else names a fungible asset. Reward and bond lanes are configured
// independently per request and may or may not share an asset.
type Lane struct {
	Asset string `json:"asset,omitempty"`
}

func NativeLane() Lane { return Lane{} }

func AssetLane(asset string) Lane { return Lane{Asset: asset} }

func (l Lane) Native() bool { return l.Asset == "" }

func (l Lane) String() string {
	if l.Native() {
		return "native"
	}
	return "asset:" + l.Asset
}
