// Command cloudseed manages the point clouds cached in the recon3d database.
//
//	cloudseed -name chair -in chair.pcd
//	cloudseed -name blob -surface dual_cluster -count 20000
//	cloudseed -list
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/stevecastle/recon3d/appconfig"
	"github.com/stevecastle/recon3d/cache"
	"github.com/stevecastle/recon3d/pointcloud"
	"github.com/stevecastle/recon3d/synth"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("cloudseed", flag.ContinueOnError)
	var (
		dbPath  string
		name    string
		in      string
		export  string
		surface string
		count   int
		seed    uint64
		list    bool
		del     bool
	)
	fs.StringVar(&dbPath, "db", appconfig.DefaultDBPath(), "Path to the recon3d SQLite DB")
	fs.StringVar(&name, "name", "", "Name to store the cloud under")
	fs.StringVar(&in, "in", "", "Import a .pcd or .json point cloud file")
	fs.StringVar(&export, "export", "", "Write the named cloud to a .pcd or .json file")
	fs.StringVar(&surface, "surface", "", "Store a synthetic surface instead: sphere | dual_cluster")
	fs.IntVar(&count, "count", 15000, "Point count for -surface")
	fs.Uint64Var(&seed, "seed", 0, "Random seed for -surface (0 = time based)")
	fs.BoolVar(&list, "list", false, "List stored clouds")
	fs.BoolVar(&del, "delete", false, "Delete the named cloud")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := cache.OpenDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	store := cache.NewStore(db)

	switch {
	case list:
		return printList(ctx, store, stdout)
	case name == "":
		fs.Usage()
		return flag.ErrHelp
	case del:
		if err := store.Delete(ctx, name); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "deleted %s\n", name)
		return nil
	case export != "":
		pc, err := store.Get(ctx, name)
		if err != nil {
			return err
		}
		if err := writeFile(export, pc); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "exported %s (%d points) to %s\n", name, pc.Len(), export)
		return nil
	}

	var pc *pointcloud.Cloud
	switch {
	case in != "" && surface != "":
		return errors.New("use either -in or -surface, not both")
	case in != "":
		pc, err = cache.LoadFile(in)
		if err != nil {
			return fmt.Errorf("read %s: %w", in, err)
		}
	case surface != "":
		v, err := synth.ParseVariant(surface)
		if err != nil {
			return err
		}
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		pc = synth.NewGenerator(rand.New(rand.NewPCG(seed, seed))).Surface(count, v)
	default:
		return errors.New("nothing to store: pass -in or -surface")
	}

	if err := store.Put(ctx, name, pc); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "stored %s (%d points); reference it as sqlite:%s\n", name, pc.Len(), name)
	return nil
}

func printList(ctx context.Context, store *cache.Store, stdout io.Writer) error {
	entries, err := store.List(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPOINTS\tCREATED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", e.Name, e.NumPoints, time.Unix(e.CreatedAt, 0).Format(time.RFC3339))
	}
	return tw.Flush()
}

func writeFile(path string, pc *pointcloud.Cloud) error {
	var encode func(io.Writer) error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		encode = func(w io.Writer) error { return pointcloud.WriteArraysJSON(pc, w) }
	case ".pcd":
		encode = func(w io.Writer) error { return pointcloud.WritePCD(pc, w, pointcloud.PCDBinary) }
	default:
		return fmt.Errorf("unsupported extension %q", filepath.Ext(path))
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = encode(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
