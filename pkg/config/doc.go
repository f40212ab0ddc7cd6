/*
Package config holds the configuration of a redirect run.

	            +-------------+
	            |   Config    |
	            | (Settings)  |
	            +------+------+
	                   |
	      +------------+------------+
	      |            |            |
	+-----+----+ +-----+----+ +-----+----+
	|   YAML   | |   HCL    | |   JSON   |
	|  Parser  | |  Parser  | |  Parser  |
	+----------+ +----------+ +----------+

🎯 Purpose:
- Bundles the run settings into one value passed to every component
- Loads optional defaults and extra mirror groups from a file
- Compiles user mirror groups once, so a bad expression fails at load time

🔄 Flow:
1. Command line flags build a Config, or a file is parsed first
2. Explicitly set flags override file values
3. Validate fills defaults and compiles mirror groups
4. The validated Config is read-only for the rest of the run
*/
package config
