package manifest

// Example is printed by `bearmake --example` and written by `bearmake init`
const Example = `# this is a comment
"""
this is also a comment

Every .c, .cpp or .o file in a listed DIRECTORY is part of the build.
bearmake detects changed files (and changed headers) from run to run and
only recompiles what is needed. Object files and hashes are kept in the
'build' folder. Delete it to force a clean build.

When adding files by name you only need source or object files, not
headers (.h or .hpp).

FLAGS are appended to the link command, CFLAGS to every compile command.
EXCLUDE skips discovered files matching a glob such as '**/test_*.c'.
Values may use expressions: FLAGS='{{ target_os == "windows" ? "-lws2_32" : "-lm" }}'
"""

EXECUTABLE_NAME='some_name'

DIRECTORY='some_dir_path'
FILE='some_file_path'
`
