/*
Package status tracks what happened to each source file during a run and
renders the end of run summary.

	+-----------+      +-----------+      +-----------+
	| operation | ---> |  Tracker  | ---> |  Summary  |
	| (per file)|      | (entries) |      | (render)  |
	+-----------+      +-----------+      +-----------+

🎯 Purpose:
- Records one FileEntry per processed source file
- Counts rewritten, pending, unchanged and failed files
- Joins per file errors so a run can fail after every file was tried

📝 Design Philosophy:
A failure on one file never stops the others, so errors are collected here
instead of being returned from the file loop.
*/
package status
