//go:build linux && amd64

package syscalls

// Linux x86-64 syscall numbers (arch/x86/entry/syscalls/syscall_64.tbl),
// restricted to the subset SPEC_FULL.md §4.7 names a handler for. Kept as
// a dedicated, architecture-tagged file so a future arm64 tracer only needs
// a sibling numbers_linux_arm64.go, never a change to handler.go's switch.
const (
	sysRead       int64 = 0
	sysWrite      int64 = 1
	sysOpen       int64 = 2
	sysClose      int64 = 3
	sysStat       int64 = 4
	sysFstat      int64 = 5
	sysLstat      int64 = 6
	sysLseek      int64 = 8
	sysIoctl      int64 = 16
	sysPread64    int64 = 17
	sysPwrite64   int64 = 18
	sysAccess     int64 = 21
	sysPipe       int64 = 22
	sysDup        int64 = 32
	sysDup2       int64 = 33
	sysSocket     int64 = 41
	sysSocketpair int64 = 53
	sysClone      int64 = 56
	sysFork       int64 = 57
	sysVfork      int64 = 58
	sysExecve     int64 = 59
	sysFcntl      int64 = 72
	sysFtruncate  int64 = 77
	sysGetdents   int64 = 78
	sysChdir      int64 = 80
	sysFchdir     int64 = 81
	sysRename     int64 = 82
	sysMkdir      int64 = 83
	sysRmdir      int64 = 84
	sysCreat      int64 = 85
	sysUnlink     int64 = 87
	sysReadlink   int64 = 89
	sysFutex      int64 = 202
	sysEpollCreate int64 = 213
	sysGetdents64 int64 = 217
	sysOpenat        int64 = 257
	sysMkdirat       int64 = 258
	sysUnlinkat      int64 = 263
	sysRenameat      int64 = 264
	sysReadlinkat    int64 = 267
	sysFaccessat     int64 = 269
	sysNewfstatat    int64 = 262
	sysEventfd       int64 = 284
	sysTimerfdCreate int64 = 283
	sysEventfd2      int64 = 290
	sysEpollCreate1  int64 = 291
	sysDup3          int64 = 292
	sysPipe2         int64 = 293
	sysExecveat      int64 = 322
	sysRenameat2     int64 = 316
	sysFaccessat2    int64 = 439
	sysStatx         int64 = 332
	sysClone3        int64 = 435
	sysOpenat2       int64 = 437
)
