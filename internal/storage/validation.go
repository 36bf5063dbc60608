package storage

// isValidSegment and isValidObjectName (httpserver.go) replace this
// package's former restic file-type validators: the object layout is flat
// (backup_root/backup_id/object) rather than repo/type/name, so there is no
// longer a fixed set of "valid types" to check against.
