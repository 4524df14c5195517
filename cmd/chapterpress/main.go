/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"chapterpress/internal/announce"
	"chapterpress/internal/backend"
	"chapterpress/internal/config"
	"chapterpress/internal/crash"
	"chapterpress/internal/draft"
	"chapterpress/internal/editor"
	"chapterpress/internal/export"
	applog "chapterpress/internal/log"
	"chapterpress/internal/navigation"
	"chapterpress/internal/settings"
	"chapterpress/internal/store"
	"chapterpress/internal/telegraph"
	"chapterpress/internal/telemetry"
	"chapterpress/internal/titles"
	"chapterpress/internal/ui"
	"chapterpress/internal/uploader"
	"chapterpress/internal/version"
)

func usage() {
	fmt.Println("Chapterpress — assemble image chapters and publish them as Telegraph pages")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  chapterpress version|-v|--version          Show version")
	fmt.Println("  chapterpress publish <dir> [title]          Scan <dir>, upload, publish, print the page URL")
	fmt.Println("  chapterpress republish <history-id> <dir>   Re-publish an article with <dir>'s images")
	fmt.Println("  chapterpress history [n]                    Show the last n published chapters (default 20)")
	fmt.Println("  chapterpress titles list                    List title groups")
	fmt.Println("  chapterpress titles add <name> [folder]     Create a title group")
	fmt.Println("  chapterpress titles var <id> <key> <value>  Set an announcement variable on a title")
	fmt.Println("  chapterpress announce <history-id> [channel] [template]")
	fmt.Println("                                              Post a channel message about a published chapter")
	fmt.Println("  chapterpress templates list                 List announcement templates")
	fmt.Println("  chapterpress templates set <name> <content> Create or update a template")
	fmt.Println("  chapterpress export cbz|pdf <dir> <out>     Package <dir>'s images for offline reading")
}

// draftAdapter lets crash.Recover snapshot the editor state.
type draftAdapter struct{ ed *editor.Store }

func (d draftAdapter) DraftManifest() draft.Manifest {
	return draft.Manifest{
		Title:    d.ed.Title(),
		EditMode: d.ed.EditMode(),
		Slug:     d.ed.Slug(),
		FinalURL: d.ed.FinalURL(),
		Images:   d.ed.Images(),
	}
}

// app bundles the wired stores for the CLI commands.
type app struct {
	cfg       config.AppConfig
	db        *store.DB
	editor    *editor.Store
	titles    *titles.Store
	sets      *settings.Store
	announcer *announce.Service // nil without a bot token
	log       *slog.Logger
}

func newApp(ctx context.Context) (*app, func(), error) {
	cfg, secrets, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	dataDir, err := config.DataDir()
	if err != nil {
		return nil, nil, err
	}
	db, err := store.Open(dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	sets := settings.NewStore(db)
	if err := sets.Load(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("load settings: %w", err)
	}
	ts := titles.NewStore(db)
	if err := ts.Load(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("load titles: %w", err)
	}

	up, err := uploader.New(cfg.Storage, secrets.StorageSecretKey)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	tg := telegraph.New(telegraph.Options{
		BaseURL:    cfg.Telegraph.BaseURL,
		Token:      secrets.TelegraphToken,
		ShortName:  cfg.Telegraph.ShortName,
		AuthorName: cfg.Telegraph.AuthorName,
	})
	tg.OnTokenCreated = func(token string) {
		if err := config.SaveTelegraphToken(token); err != nil {
			applog.WithComponent("cli").Warn("persist telegraph token", slog.Any("err", err))
		}
	}

	deps := editor.Deps{
		Uploader:   up,
		Publisher:  tg,
		Titles:     ts,
		Settings:   sets,
		Navigation: navigation.NewStore(),
		History:    db,
	}
	if cfg.Backend.Enable {
		mirror, merr := backend.Connect(ctx, cfg.Backend.DSN)
		if merr != nil {
			applog.WithComponent("cli").Warn("history mirror unavailable", slog.Any("err", merr))
		} else {
			deps.Mirror = mirror
		}
	}

	a := &app{
		cfg:    cfg,
		db:     db,
		editor: editor.NewStore(deps),
		titles: ts,
		sets:   sets,
		log:    applog.WithComponent("cli"),
	}
	if secrets.BotToken != "" {
		bot := announce.NewBot(announce.Options{BaseURL: cfg.Announce.BaseURL, Token: secrets.BotToken})
		a.announcer = announce.NewService(bot, db, sets, ts)
	}
	closer := func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = sets.Flush(flushCtx)
		telemetry.Flush(flushCtx)
		_ = db.Close()
	}
	return a, closer, nil
}

func fail(err error) {
	fmt.Println("Error:", err)
	os.Exit(1)
}

func main() {
	applog.Init(applog.FromEnv())
	telemetry.InitDefault()
	l := applog.WithComponent("cli")
	ctx := context.Background()

	var snap crash.Snapshotter
	draftDir, _ := config.DataDir()
	defer func() { crash.Recover(draftDir, snap) }()

	args := os.Args
	if len(args) < 2 {
		usage()
		return
	}
	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("Chapterpress")
		fmt.Println(version.String())

	case "publish":
		if len(args) < 3 {
			fmt.Println("publish requires <dir>")
			usage()
			os.Exit(2)
		}
		a, closer, err := newApp(ctx)
		if err != nil {
			fail(err)
		}
		defer closer()
		snap = draftAdapter{ed: a.editor}

		abs, _ := filepath.Abs(args[2])
		sel, err := ui.ScanFolder(abs)
		if err != nil {
			fail(err)
		}
		added := a.editor.ApplyFolderSelection(sel.Path, sel.Title, sel.Images)
		if len(args) > 3 {
			a.editor.SetTitle(args[3])
		}
		l.Info("chapter assembled", slog.String("dir", abs), slog.Int("images", added))

		url, err := a.editor.Publish(ctx)
		if err != nil {
			fail(err)
		}
		telemetry.Event(telemetry.EventPublishCreated, map[string]any{"images": len(a.editor.Images())})
		fmt.Println(url)

	case "republish":
		if len(args) < 4 {
			fmt.Println("republish requires <history-id> and <dir>")
			usage()
			os.Exit(2)
		}
		id, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			fail(fmt.Errorf("bad history id %q", args[2]))
		}
		a, closer, err := newApp(ctx)
		if err != nil {
			fail(err)
		}
		defer closer()
		snap = draftAdapter{ed: a.editor}

		rec, err := a.db.HistoryByID(ctx, id)
		if err != nil {
			fail(err)
		}
		if err := a.editor.LoadArticle(ctx, rec); err != nil {
			fail(err)
		}
		telemetry.Event(telemetry.EventArticleLoaded, nil)
		abs, _ := filepath.Abs(args[3])
		sel, err := ui.ScanFolder(abs)
		if err != nil {
			fail(err)
		}
		a.editor.ApplyFolderSelection(sel.Path, sel.Title, sel.Images)

		url, err := a.editor.Publish(ctx)
		if err != nil {
			fail(err)
		}
		telemetry.Event(telemetry.EventPublishEdited, map[string]any{"images": len(a.editor.Images())})
		fmt.Println(url)

	case "history":
		limit := 20
		if len(args) > 2 {
			if n, err := strconv.Atoi(args[2]); err == nil {
				limit = n
			}
		}
		a, closer, err := newApp(ctx)
		if err != nil {
			fail(err)
		}
		defer closer()
		recs, err := a.db.RecentHistory(ctx, limit, 0)
		if err != nil {
			fail(err)
		}
		for _, r := range recs {
			fmt.Printf("%6d  %s  %3d imgs  %s  %s\n", r.ID, r.Date, r.ImageCount, r.Title, r.URL)
		}

	case "titles":
		if len(args) < 3 {
			fmt.Println("titles requires list|add|var")
			usage()
			os.Exit(2)
		}
		a, closer, err := newApp(ctx)
		if err != nil {
			fail(err)
		}
		defer closer()
		switch args[2] {
		case "list":
			for _, t := range a.titles.Titles() {
				fmt.Printf("%4d  %s\n", t.ID, t.Name)
				for _, f := range t.Folders {
					fmt.Printf("      %s\n", f.Path)
				}
				for _, v := range t.Variables {
					fmt.Printf("      {{%s}} = %s\n", v.Key, v.Value)
				}
			}
		case "add":
			if len(args) < 4 {
				fmt.Println("titles add requires <name>")
				os.Exit(2)
			}
			folder := ""
			if len(args) > 4 {
				folder, _ = filepath.Abs(args[4])
			}
			t, err := a.titles.Create(ctx, args[3], folder)
			if err != nil {
				fail(err)
			}
			fmt.Printf("Created title %d: %s\n", t.ID, t.Name)
		case "var":
			if len(args) < 6 {
				fmt.Println("titles var requires <id> <key> <value>")
				os.Exit(2)
			}
			id, err := strconv.ParseInt(args[3], 10, 64)
			if err != nil {
				fail(fmt.Errorf("bad title id %q", args[3]))
			}
			if err := a.db.SetTitleVariable(ctx, id, args[4], args[5]); err != nil {
				fail(err)
			}
			fmt.Printf("Set {{%s}} on title %d\n", args[4], id)
		default:
			fmt.Println("titles requires list|add|var")
			os.Exit(2)
		}

	case "announce":
		if len(args) < 3 {
			fmt.Println("announce requires <history-id>")
			usage()
			os.Exit(2)
		}
		id, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			fail(fmt.Errorf("bad history id %q", args[2]))
		}
		a, closer, err := newApp(ctx)
		if err != nil {
			fail(err)
		}
		defer closer()
		if a.announcer == nil {
			fail(errors.New("announce requires a bot token; set " + config.EnvBotToken + " or store one in the keychain"))
		}
		channel := ""
		if len(args) > 3 {
			channel = args[3]
		}
		tpl := a.cfg.Announce.Template
		if len(args) > 4 {
			stored, err := a.db.TemplateByName(ctx, args[4])
			if err != nil {
				fail(err)
			}
			tpl = stored.Content
		}
		text, err := a.announcer.Announce(ctx, id, channel, tpl, time.Time{})
		if err != nil {
			fail(err)
		}
		telemetry.Event(telemetry.EventAnnounceSent, nil)
		fmt.Println(text)

	case "templates":
		if len(args) < 3 {
			fmt.Println("templates requires list|set")
			usage()
			os.Exit(2)
		}
		a, closer, err := newApp(ctx)
		if err != nil {
			fail(err)
		}
		defer closer()
		switch args[2] {
		case "list":
			tpls, err := a.db.Templates(ctx)
			if err != nil {
				fail(err)
			}
			for _, tpl := range tpls {
				fmt.Printf("%4d  %s\n      %s\n", tpl.ID, tpl.Name, tpl.Content)
			}
		case "set":
			if len(args) < 5 {
				fmt.Println("templates set requires <name> <content>")
				os.Exit(2)
			}
			id, err := a.db.SaveTemplate(ctx, args[3], args[4])
			if err != nil {
				fail(err)
			}
			fmt.Printf("Saved template %d: %s\n", id, args[3])
		default:
			fmt.Println("templates requires list|set")
			os.Exit(2)
		}

	case "export":
		if len(args) < 5 {
			fmt.Println("export requires cbz|pdf <dir> <out>")
			usage()
			os.Exit(2)
		}
		abs, _ := filepath.Abs(args[3])
		sel, err := ui.ScanFolder(abs)
		if err != nil {
			fail(err)
		}
		ed := editor.NewStore(editor.Deps{})
		ed.ApplyFolderSelection(sel.Path, sel.Title, sel.Images)
		out, _ := filepath.Abs(args[4])
		switch args[2] {
		case "cbz":
			err = export.ChapterCBZ(ed.Title(), ed.Images(), out)
		case "pdf":
			err = export.ChapterPDF(ed.Title(), ed.Images(), out, export.PDFOptions{})
		default:
			fmt.Println("export requires cbz|pdf")
			os.Exit(2)
		}
		if err != nil {
			fail(err)
		}
		telemetry.Event(telemetry.EventExport, map[string]any{"format": args[2]})
		fmt.Println("Wrote", out)

	default:
		usage()
	}
}
