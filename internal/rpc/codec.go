// Package rpc encodes individual remote-procedure-call payloads into an
// open wire frame. Each Serialize function is a pure mapping from
// semantic arguments to the byte order the client expects; none of them
// decide who receives the frame.
package rpc

import (
	"github.com/desyncd/crew-sync-backend/internal/wire"
	"github.com/desyncd/crew-sync-backend/pkg/protocol"
)

// StartCall opens the inner RPC frame for a call against the object
// named by netID: packed target NetId, then the call code byte. The
// caller closes the frame with EndMessage after the payload.
func StartCall(w *wire.Writer, netID uint32, call protocol.RPCCall) {
	w.StartMessage(protocol.TagRPC)
	w.WritePacked(netID)
	w.WriteUint8(byte(call))
}

// SerializeSetRole writes the SetRole payload: role code, then the
// "can override host's knowledge" flag.
func SerializeSetRole(w *wire.Writer, role protocol.RoleType, canOverrideHost bool) {
	w.WriteUint8(byte(role))
	w.WriteBool(canOverrideHost)
}

// SerializeMurderPlayer writes the victim's NetId and the result flags.
func SerializeMurderPlayer(w *wire.Writer, targetNetID uint32, result protocol.MurderResult) {
	w.WritePacked(targetNetID)
	w.WriteUint8(byte(result))
}

// SerializeProtectPlayer writes the protected target's NetId and the
// guardian's outfit color.
func SerializeProtectPlayer(w *wire.Writer, targetNetID uint32, color protocol.Color) {
	w.WritePacked(targetNetID)
	w.WriteUint8(byte(color))
}

// SerializeExiled writes nothing; the Exiled call has no payload.
func SerializeExiled(_ *wire.Writer) {}

// SerializeStartVanish writes nothing; the StartVanish call has no
// payload.
func SerializeStartVanish(_ *wire.Writer) {}

// SerializeStartAppear writes the animation flag.
func SerializeStartAppear(w *wire.Writer, shouldAnimate bool) {
	w.WriteBool(shouldAnimate)
}

func SerializeSetName(w *wire.Writer, name string) {
	w.WriteString(name)
}

func SerializeSetColor(w *wire.Writer, infoNetID uint32, color protocol.Color) {
	w.WritePacked(infoNetID)
	w.WriteUint8(byte(color))
}

func SerializeSetHat(w *wire.Writer, hatID string) {
	w.WriteString(hatID)
}

func SerializeSetSkin(w *wire.Writer, skinID string) {
	w.WriteString(skinID)
}

func SerializeSetPet(w *wire.Writer, petID string) {
	w.WriteString(petID)
}

func SerializeSendChat(w *wire.Writer, text string) {
	w.WriteString(text)
}
