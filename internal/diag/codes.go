package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Built-in signature rows
	MissingClass           Code = 1001
	MixinConflict          Code = 1002
	MissingClassDefinition Code = 1003
	DuplicateMod           Code = 1004
	IncompatibleMods       Code = 1005
	VersionMismatch        Code = 1006
	WrongJavaVersion       Code = 1007
	OutOfMemory            Code = 1008
	WrongLoader            Code = 1009
	MissingDependency      Code = 1010

	// Rows supplied by configuration start here, one code per row.
	UserSignatureBase Code = 9000
)

var codeDescription = map[Code]string{
	UnknownCode:            "Unknown failure",
	MissingClass:           "Missing class",
	MixinConflict:          "Mixin conflict",
	MissingClassDefinition: "Missing class definition",
	DuplicateMod:           "Duplicate mod",
	IncompatibleMods:       "Incompatible mods",
	VersionMismatch:        "Version mismatch",
	WrongJavaVersion:       "Wrong Java version",
	OutOfMemory:            "Out of memory",
	WrongLoader:            "Wrong mod loader",
	MissingDependency:      "Missing dependency",
}

// UserCode returns the code of the n-th configured signature row.
func UserCode(n uint16) Code {
	return UserSignatureBase + Code(n)
}

func (c Code) IsUser() bool {
	return c >= UserSignatureBase
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < int(UserSignatureBase):
		return fmt.Sprintf("MC%04d", ic)
	case ic >= int(UserSignatureBase):
		return fmt.Sprintf("USR%04d", ic)
	}
	return "MC0000"
}

func (c Code) Title() string {
	if c.IsUser() {
		return "User signature"
	}
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
