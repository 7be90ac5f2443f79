/*
Package config loads tgfeed settings from disk.

	                 +-------------+
	                 |   Config    |
	                 | (Defaults)  |
	                 +------+------+
	                        |
	     +---------+--------+-------+---------+
	     |         |                |         |
	+----+---+ +---+----+     +-----+--+ +----+---+
	|  YAML  | |  JSON  |     |  HCL   | |  TOML  |
	+--------+ +--------+     +--------+ +--------+

🎯 Purpose:
- Picks a parser by file extension
- Lays file values over Default(), so every key is optional
- Rejects unknown keys in every format
- Converts the result into stream and transport options

🔄 Flow:
1. LoadConfig reads the file
2. The registered Parser decodes it into the shared file shape
3. Durations ("90s", "6h") and sizes ("8MiB") are converted
4. Validate checks ranges, the listing format, the feeds and the filter globs

🔍 Example (YAML):

	source:
	  url: https://tgftp.nws.noaa.gov/SL.us008001/CU.EMWIN/DF.xt/DC.gsatR/OPS/
	  listing_path: txtmin02.zip
	  archive: true
	poll:
	  interval: 47s
	download:
	  unwrap_archives: true
	  uppercase_names: true
	filter:
	  include: ["*.TXT"]
	  ignore_case: true

The same keys are written as blocks in HCL:

	source {
	  url     = "https://example.org/products/"
	  format  = "html"
	}
	retry {
	  max_delay = "2m"
	}

📰 Presets and feeds:

source.preset ("text" or "image") fills in the EMWIN gateway URL and its
archive feeds; explicit keys override it. A feeds list polls several listings
against one seen-set, and in HCL each feed is a labelled block:

	feed "txtmin02" {
	  listing_path = "txtmin02.zip"
	  interval     = "47s"
	}
	feed "txtmin06" {
	  listing_path = "txtmin06.zip"
	  interval     = "6m"
	  cycles       = 3
	}
*/
package config
