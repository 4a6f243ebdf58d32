// Package config loads race tracks from JSON files.
//
// Each file in the tracks directory defines one track; its ID is the file
// name without the .json extension:
//
//	{
//	  "name": "Hairpin",
//	  "description": "...",
//	  "width": 100,
//	  "height": 100,
//	  "layout": ["....####....", ...],
//	  "speed_constant": 5
//	}
//
// '#' marks a drivable cell and '.' an off-track one. The bottom row holds the
// start line and, right of its middle, the finish zone. speed_constant is
// optional and overrides the server default for games on that track.
//
// Tracks are validated on load and cached. The built-in hairpin is served as
// "hairpin" when no file of that name exists, so a server always has a
// default track.
package config
