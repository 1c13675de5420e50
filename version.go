package vox

// Version is the agent release version, reported by the CLI and the
// gateway health endpoint.
const Version = "0.1.0"
