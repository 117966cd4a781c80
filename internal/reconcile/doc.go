// Package reconcile merges a game's mod configuration between two installs
// of OpenMW: a source document treated as the truth for mod state and a
// target document updated to match it.
//
// # Document model
//
// Both documents are flat key=value lists with repeatable keys. Three kinds
// of line matter:
//
//   - search-path directives (data="...") declaring a directory scanned for
//     content files
//   - content directives (content=...) declaring one loadable plugin
//   - opaque lines — everything else, carried through verbatim and in order
//
// # What a run does
//
// The target keeps all of its opaque lines. Its search-path and content
// directives are discarded and replaced by the reconciled set: the
// destination's base game-data directory first, then the source's per-mod
// search paths rewritten through an ordered translation table, then the
// source's content list verbatim. Source search paths pointing at the source
// environment's own game-data root or at scratch directories are dropped, as
// are paths no rule recognizes; dropped lines are reported rather than
// silently discarded.
//
// # Usage
//
//	report, err := reconcile.Reconcile(reconcile.Input{
//		SourcePath: "/mnt/win/.../My Games/OpenMW/openmw.cfg",
//		TargetPath: home + "/.var/app/org.openmw.OpenMW/config/openmw/openmw.cfg",
//		BaseData:   "/mnt/data02/SteamLibrary/steamapps/common/Morrowind/Data Files",
//		Rules:      rules,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("emitted %d search paths, %d content entries\n",
//		report.SearchPaths, report.ContentEntries)
//
// # Safety
//
// The target's prior bytes are copied to <target>.backup before anything is
// written, and the merged document is committed with an atomic
// write-temp-then-rename so an interrupted run never leaves a truncated
// target on disk.
//
// # Error handling
//
// The package defines sentinel error kinds, all wrapped with the offending
// path:
//
//   - ErrMissingInput: a document does not exist (nothing written)
//   - ErrEncoding: a document is not valid UTF-8 (nothing written)
//   - ErrBackup: the backup artifact could not be written
//   - ErrWrite: the merged document could not be committed
package reconcile
