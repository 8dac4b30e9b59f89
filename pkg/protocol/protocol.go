package protocol

// Envelope tags. TagGameData is the outer game-data envelope; TagData
// and TagRPC are the inner message kinds nested inside it.
const (
	TagData     byte = 1
	TagRPC      byte = 2
	TagGameData byte = 5
)

// RPCCall identifies a remote procedure on a networked object.
type RPCCall byte

const (
	RPCExiled        RPCCall = 4
	RPCSetName       RPCCall = 6
	RPCSetColor      RPCCall = 8
	RPCMurderPlayer  RPCCall = 12
	RPCSendChat      RPCCall = 13
	RPCSetHat        RPCCall = 39
	RPCSetSkin       RPCCall = 40
	RPCSetPet        RPCCall = 41
	RPCSetRole       RPCCall = 44
	RPCProtectPlayer RPCCall = 45
	RPCStartVanish   RPCCall = 63
	RPCStartAppear   RPCCall = 65
)

// DeathReason records how a character most recently died.
type DeathReason byte

const (
	DeathReasonExile      DeathReason = 0
	DeathReasonKill       DeathReason = 1
	DeathReasonDisconnect DeathReason = 2

	// DeathReasonNone is a server-side sentinel for "never died"; it is
	// not written to the wire.
	DeathReasonNone DeathReason = 0xff
)

// MurderResult is the flag set a murder RPC carries so the client can
// animate either the kill or the failed attempt.
type MurderResult byte

const (
	MurderSucceeded       MurderResult = 1 << 0
	MurderFailedError     MurderResult = 1 << 1
	MurderFailedProtected MurderResult = 1 << 2
	MurderDecisionByHost  MurderResult = 1 << 3
)

// IsFailed reports whether the murder did not actually kill the target.
func (m MurderResult) IsFailed() bool {
	return m&(MurderFailedError|MurderFailedProtected) != 0
}
