// Command xipfs-shell is a line-oriented REPL over the façade, the
// direct descendant of the teacher's bufio.Scanner REPL loop, with
// commands standing in for the original's SQL statements: ls, cat,
// write, rm, mkdir, rmdir, mv, stat, df, run, exit.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	cliimage "xipfs/cmd/internal/image"
	"xipfs/flash"
	"xipfs/fs"
	"xipfs/mount"
	"xipfs/xexec"

	"github.com/dustin/go-humanize"
)

func main() {
	path := flag.String("image", "xipfs.img", "path to the flash image file to mount")
	pageSize := flag.Uint("page-size", 4096, "erase page size in bytes (must match the image)")
	numPages := flag.Uint("pages", 8, "number of pages in the image (must match the image)")
	verbose := flag.Bool("v", false, "trace façade operations to stderr")
	flag.Parse()

	fs.Verbose = *verbose

	geo := cliimage.DefaultGeometry
	geo.PageSize = uint32(*pageSize)
	geo.NumPages = uint32(*numPages)

	m, dev, err := cliimage.Open(*path, geo)
	if err != nil {
		log.Fatalf("%v", err)
	}

	sh := &shell{m: m, dev: dev, imagePath: *path}
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("xipfs> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			break
		}
		sh.dispatch(line)
	}
	if err := sh.save(); err != nil {
		log.Printf("save on exit: %v", err)
	}
}

type shell struct {
	m         *mount.Mount
	dev       *flash.MemDevice
	imagePath string
}

func (s *shell) save() error {
	return cliimage.Save(s.imagePath, s.dev)
}

func (s *shell) dispatch(line string) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	var err error
	switch strings.ToLower(cmd) {
	case "ls":
		err = s.ls(args)
	case "cat":
		err = s.cat(args)
	case "write":
		err = s.write(args)
	case "rm":
		err = s.rm(args)
	case "mkdir":
		err = s.mkdir(args)
	case "rmdir":
		err = s.rmdir(args)
	case "mv":
		err = s.mv(args)
	case "stat":
		err = s.stat(args)
	case "df":
		err = s.df(args)
	case "run":
		err = s.run(args)
	case "save":
		err = s.save()
	case "help":
		printHelp()
	default:
		err = fmt.Errorf("unknown command %q (try help)", cmd)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
}

func printHelp() {
	fmt.Println(`commands:
  ls <dir>                 list a directory's entries
  cat <path>                print a file's contents
  write <path> <text...>    create a new file with the given text (fails if it exists)
  rm <path>                 remove a file
  mkdir <dir>                create an empty directory
  rmdir <dir>                remove an empty directory
  mv <from> <to>             rename a file or directory
  stat <path>                print metadata for a path
  df                         print mount-wide capacity
  run <path> [args...]       execute a binary
  save                       persist the in-memory image to disk now
  exit | quit                save and leave`)
}

func (s *shell) ls(args []string) error {
	dir := "/"
	if len(args) > 0 {
		dir = args[0]
	}
	h, err := fs.OpenDir(s.m, dir)
	if err != nil {
		return err
	}
	defer fs.CloseDir(s.m, h)
	for {
		name, err := fs.ReadDir(s.m, h)
		if err != nil {
			return err
		}
		if name == "" {
			return nil
		}
		fmt.Println(name)
	}
}

func (s *shell) cat(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: cat <path>")
	}
	st, err := fs.Stat(s.m, args[0])
	if err != nil {
		return err
	}
	h, err := fs.Open(s.m, args[0], fs.ORdonly)
	if err != nil {
		return err
	}
	defer fs.Close(s.m, h)
	buf := make([]byte, st.Size)
	n, err := fs.Read(s.m, h, buf)
	if err != nil {
		return err
	}
	os.Stdout.Write(buf[:n])
	fmt.Println()
	return nil
}

func (s *shell) write(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: write <path> [text...]")
	}
	path := args[0]
	text := strings.Join(args[1:], " ")
	payload := []byte(text)

	if err := fs.NewFile(s.m, path, uint32(len(payload)), 0); err != nil {
		return err
	}
	h, err := fs.Open(s.m, path, fs.OWronly)
	if err != nil {
		return err
	}
	defer fs.Close(s.m, h)
	_, err = fs.Write(s.m, h, payload)
	return err
}

func (s *shell) rm(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: rm <path>")
	}
	return fs.Unlink(s.m, args[0])
}

func (s *shell) mkdir(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: mkdir <dir>")
	}
	return fs.Mkdir(s.m, args[0])
}

func (s *shell) rmdir(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: rmdir <dir>")
	}
	return fs.Rmdir(s.m, args[0])
}

func (s *shell) mv(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: mv <from> <to>")
	}
	return fs.Rename(s.m, args[0], args[1])
}

func (s *shell) stat(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: stat <path>")
	}
	st, err := fs.Stat(s.m, args[0])
	if err != nil {
		return err
	}
	kind := "file"
	if st.IsDir {
		kind = "dir"
	}
	fmt.Printf("%s  size=%s  blocks=%d  exec=%t\n", kind, humanize.Bytes(uint64(st.Size)), st.Blocks, st.Exec)
	return nil
}

func (s *shell) df(args []string) error {
	vfs, err := fs.Statvfs(s.m)
	if err != nil {
		return err
	}
	total := uint64(vfs.Blocks) * uint64(vfs.Bsize)
	free := uint64(vfs.BlocksFree) * uint64(vfs.Bsize)
	fmt.Printf("total=%s  free=%s  block_size=%s\n", humanize.Bytes(total), humanize.Bytes(free), humanize.Bytes(uint64(vfs.Bsize)))
	return nil
}

func (s *shell) run(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: run <path> [args...]")
	}
	ret, err := xexec.Exec(s.m, args[0], args[1:], nil, false)
	if err != nil {
		return err
	}
	fmt.Printf("exit code: %d\n", ret)
	return nil
}
