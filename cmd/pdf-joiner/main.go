// Command pdf-joiner serves the web form that splices supplementary PDFs
// into a template PDF.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/zeptools/pdf-joiner/conf"
	"github.com/zeptools/pdf-joiner/merge"
	"github.com/zeptools/pdf-joiner/routing"
	"github.com/zeptools/pdf-joiner/uds"
)

func main() {
	appRoot := flag.String("root", ".", "app root holding config/ and templates/")
	flag.Parse()

	if err := run(*appRoot); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

func run(appRoot string) error {
	// pdfcpu must not write its config dir into the user's home
	pdfapi.DisableConfigDir()

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	core := &conf.Core{}
	if err := core.BaseInit(appRoot, rootCtx, rootCancel); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	defer core.ResourceCleanUp()

	if err := core.LoadCatalog(); err != nil {
		return err
	}
	if err := core.PrepareHTMLTemplateStore(); err != nil {
		return err
	}
	if err := merge.CombineTemplates(core.HTMLTemplateStore); err != nil {
		return err
	}
	if err := core.PrepareKVDatabase(); err != nil {
		return err
	}
	if err := core.PrepareSQLDatabases(); err != nil {
		return err
	}
	core.PrepareJobScheduler()
	if err := core.PrepareAudit(rootCtx); err != nil {
		return err
	}
	if err := core.PrepareThrottleBucketStore(); err != nil {
		return err
	}

	handlers := &merge.Handlers{
		Service:        merge.NewService(core.Catalog, core.AuditRecorder),
		Templates:      core.HTMLTemplateStore,
		AppName:        core.AppName,
		MaxUploadBytes: core.MaxUploadBytes(),
		Proxies:        core.Proxies,
	}
	var mergeWrappers []routing.HandlerWrapper
	if core.ThrottleBucketStore != nil {
		mergeWrappers = append(mergeWrappers, routing.ThrottleWrapper{
			Store:   core.ThrottleBucketStore,
			GroupID: conf.MergeThrottleGroup,
			Proxies: core.Proxies,
		})
	}
	router := routing.NewBaseRouter()
	handlers.Register(router, []routing.HandlerWrapper{routing.AccessLogWrapper{Proxies: core.Proxies}, routing.RecoverWrapper}, mergeWrappers...)
	core.PrepareWebService(router)

	cmdMap := uds.AdminCommands(core.Catalog, core.AuditReader, core.AuditCounters)
	cmdMap["prune"] = uds.CmdHnd{
		Desc:  "delete SQL audit records older than days",
		Usage: "prune <days>",
		Fn: func(ctx context.Context, args []string, w io.Writer) error {
			if len(args) != 1 {
				return fmt.Errorf("expected one argument")
			}
			days, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid days %q", args[0])
			}
			n, err := core.PruneAudit(ctx, days)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(w, "pruned %d records\n", n)
			return err
		},
	}
	core.PrepareUDSService(cmdMap)

	if err := core.StartServices(); err != nil {
		core.StopServices()
		return err
	}
	log.Printf("[INFO] %q started, serving %d document types", core.AppName, core.Catalog.Len())
	return core.WaitServicesDone()
}
