package model

// Recognised Run attribute names. Presence in a Run's Attributes map
// is not enforced; these name the attributes the original toolchain
// populates when writing vector files.
const (
	RunAttrIniFile        = "inifile"
	RunAttrConfigName     = "configname"
	RunAttrRunNumber      = "runnumber"
	RunAttrNetwork        = "network"
	RunAttrExperiment     = "experiment"
	RunAttrMeasurement    = "measurement"
	RunAttrReplication    = "replication"
	RunAttrDateTime       = "datetime"
	RunAttrProcessID      = "processid"
	RunAttrResultDir      = "resultdir"
	RunAttrRepetition     = "repetition"
	RunAttrSeedSet        = "seedset"
	RunAttrIterationVars  = "iterationvars"
	RunAttrIterationVars2 = "iterationvars2"
)

// RunAttributeNames lists the recognised Run attribute names in a
// fixed order, for callers that enumerate them (e.g. documentation,
// round-trip tests).
func RunAttributeNames() []string {
	return []string{
		RunAttrIniFile, RunAttrConfigName, RunAttrRunNumber, RunAttrNetwork,
		RunAttrExperiment, RunAttrMeasurement, RunAttrReplication, RunAttrDateTime,
		RunAttrProcessID, RunAttrResultDir, RunAttrRepetition, RunAttrSeedSet,
		RunAttrIterationVars, RunAttrIterationVars2,
	}
}

// Recognised Vector-attribute keys (attached via `attr` lines after a
// `vector` declaration).
const (
	VectorAttrType = "type"
	VectorAttrEnum = "enum"
)

// VectorAttributeNames lists the recognised Vector attribute names.
func VectorAttributeNames() []string {
	return []string{VectorAttrType, VectorAttrEnum}
}
