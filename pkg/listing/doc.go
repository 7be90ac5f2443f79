/*
Package listing parses remote directory listings into ordered entries.

	+-------------+      +-----------+      +-----------+
	|  raw bytes  | ---> |  Parser   | ---> |  []Entry  |
	+-------------+      +-----+-----+      +-----------+
	                           |
	       +--------+--------+-+------+--------+
	       |  html  |  text  |  json  |  zip   |
	       +--------+--------+--------+--------+

🎯 Purpose:
- Turn whatever the remote serves as its index into []Entry
- Preserve the remote order (usually chronological)
- Refuse to guess: a malformed listing is a *ParseError, never a partial result

🔌 Parsers register themselves by name in init and are looked up with Get.
*/
package listing
