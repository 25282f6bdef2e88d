package fsutil

// Note: fsutil tests are split by concern, covering what backend/posixfs
// actually calls through this package:
//
// - atomic_test.go: AtomicWriteFile, SafeRename
// - safe_test.go: EnsureDir, FileExists, DirExists, FileSize, RemoveAll,
//   ListFiles, ListDirs, IsHidden, FilterHidden, CleanPath, AbsPath
