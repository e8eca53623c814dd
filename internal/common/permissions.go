package common

// File permissions used for everything mlprep writes.
const (
	// FilePermissionSecure is used for files that may hold secrets.
	FilePermissionSecure = 0600

	// FilePermissionNormal is used for artifacts and output parameters.
	FilePermissionNormal = 0644

	// DirPermissionSecure is used for the configuration directory.
	DirPermissionSecure = 0700

	// DirPermissionNormal is used for output and database directories.
	DirPermissionNormal = 0755
)
