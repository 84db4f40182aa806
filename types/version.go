package types

// Version is the canonical knotfold version.
// The CLI, the archive header and the Lode run records all report this value.
const Version = "0.3.0"

// ArchiveVersion is the archive frame contract version.
// Bumped only when the frame layout changes incompatibly.
const ArchiveVersion = "1"
