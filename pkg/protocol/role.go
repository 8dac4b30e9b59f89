package protocol

// RoleType is the closed set of roles a client knows how to render. The
// byte values are part of the wire format and must match the unmodified
// client exactly.
type RoleType byte

const (
	RoleCrewmate      RoleType = 0
	RoleImpostor      RoleType = 1
	RoleScientist     RoleType = 2
	RoleEngineer      RoleType = 3
	RoleGuardianAngel RoleType = 4
	RoleShapeshifter  RoleType = 5
	RoleCrewmateGhost RoleType = 6
	RoleImpostorGhost RoleType = 7
)

// IsImpostor reports whether the role is on the impostor team, dead or
// alive.
func (r RoleType) IsImpostor() bool {
	return r == RoleImpostor || r == RoleShapeshifter || r == RoleImpostorGhost
}

func (r RoleType) IsGhost() bool {
	return r == RoleCrewmateGhost || r == RoleImpostorGhost || r == RoleGuardianAngel
}

func (r RoleType) String() string {
	switch r {
	case RoleCrewmate:
		return "crewmate"
	case RoleImpostor:
		return "impostor"
	case RoleScientist:
		return "scientist"
	case RoleEngineer:
		return "engineer"
	case RoleGuardianAngel:
		return "guardian_angel"
	case RoleShapeshifter:
		return "shapeshifter"
	case RoleCrewmateGhost:
		return "crewmate_ghost"
	case RoleImpostorGhost:
		return "impostor_ghost"
	default:
		return "unknown"
	}
}
