/*
Package operation implements a redirect run from proxy discovery to the last
rewritten source file.

	+-------------+      +-------------+      +-------------+
	|  discovery  | ---> |   pattern   | ---> |   sources   |
	| (proxy idx) |      | (compile)   |      | (rewrite)   |
	+-------------+      +-------------+      +------+------+
	                                                 |
	                                          +------+------+
	                                          | mirrorlist  |
	                                          | (optional)  |
	                                          +-------------+

🔄 Flow:
1. Fetch the proxy index and extract the served repositories
2. Compile one pattern per repository, keeping index order
3. Rewrite the main source file, then every *.list file
4. Record each file in a status tracker and report the summary

⚡ Error policy:
- Discovery failures are fatal and happen before any file is read
- A failing file is recorded and the run continues with the next one
- Files are processed one at a time, callers serialize concurrent runs
*/
package operation
