package bridge

import (
	"fmt"
	"strconv"

	"github.com/chazu/trellis/config"
)

// Description formats the one-line version banner for rel.
func Description(rel config.Release) string {
	if rel.Description != "" {
		return rel.Description
	}
	return fmt.Sprintf("%s %s (%s revision %s) [%s]",
		rel.Engine, rel.Version, rel.ReleaseDate, rel.Revision, rel.Platform)
}

// InitRelease installs the release metadata as frozen top-level constants.
// Patchlevel and revision must be integers.
func InitRelease(i *Interp, rel config.Release) error {
	patchlevel, err := strconv.ParseInt(rel.Patchlevel, 10, 64)
	if err != nil {
		return notDefined(NotDefinedGlobalConstant, "TRELLIS_PATCHLEVEL")
	}
	revision, err := strconv.ParseInt(rel.Revision, 10, 64)
	if err != nil {
		return notDefined(NotDefinedGlobalConstant, "TRELLIS_REVISION")
	}

	strs := []struct{ name, value string }{
		{"TRELLIS_COPYRIGHT", rel.Copyright},
		{"TRELLIS_DESCRIPTION", Description(rel)},
		{"TRELLIS_ENGINE", rel.Engine},
		{"TRELLIS_ENGINE_VERSION", rel.EngineVersion},
		{"TRELLIS_PLATFORM", rel.Platform},
		{"TRELLIS_RELEASE_DATE", rel.ReleaseDate},
		{"TRELLIS_VERSION", rel.Version},
	}
	for _, c := range strs {
		v := i.Freeze(i.ConvertMutString(c.value))
		if err := i.DefineGlobalConstant(c.name, v); err != nil {
			return err
		}
	}
	if err := i.DefineGlobalConstant("TRELLIS_PATCHLEVEL", i.ConvertInt(patchlevel)); err != nil {
		return err
	}
	return i.DefineGlobalConstant("TRELLIS_REVISION", i.ConvertInt(revision))
}
