// Package config provides configuration management for the mwsync tools.
//
// The package uses a Provider interface to abstract configuration loading,
// with the primary implementation being filesystem-based configuration via
// a YAML profile.
//
// # Configuration Structure
//
// The profile has two independent sections, one per tool:
//
//	sync:
//	  source: "/run/media/win01/Users/Martin/Documents/My Games/OpenMW/openmw.cfg"
//	  target: "~/.var/app/org.openmw.OpenMW/config/openmw/openmw.cfg"
//	  base_data: "/mnt/data02/SteamLibrary/steamapps/common/Morrowind/Data Files"
//	  rules:
//	    - pattern: 'ModOrganizer/Morrowind/mods/([^"]+)'
//	      target: "~/Documents/Morrowind/mods/{name}"
//	  skip:
//	    - "steamapps/common/Morrowind/Data Files"
//	    - "ModOrganizer/Morrowind/overwrite"
//	installer:
//	  name: cursor
//	  display_name: Cursor AI IDE
//	  download_url: https://www.cursor.com/api/download?platform=linux-x64&releaseTrack=stable
//	  icon_url: https://...
//	  process_name: cursor.appimage
//
// # Basic Usage
//
// Load configuration using the default path (~/.mwsync/config.yaml):
//
//	cfg, err := config.New().Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Validation
//
// A loaded profile is validated before use:
//   - sync.source, sync.target and sync.base_data must be set when the sync
//     section is configured at all
//   - every rule pattern must compile and capture the mod name; every rule
//     target must contain the {name} placeholder
//   - installer.name and installer.download_url must be set
//
// Profiles that only configure the installer are valid; `mwsync sync` then
// refuses to run until the sync section is filled in.
//
// # Defaults
//
// With no profile file the installer section defaults to the Cursor release
// endpoint and the sync section to the flatpak OpenMW target path plus the
// standard exclusion patterns. A leading "~/" in any path field is expanded
// to the user's home directory.
//
// # Error Handling
//
// The package defines two error kinds:
//   - ErrInvalidConfig: validation of a loaded profile failed
//   - ErrNoConfig: profile file not found (defaults are returned instead)
package config
