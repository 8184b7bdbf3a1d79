package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"image/png"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/kacebover/appicon/config"
	"github.com/kacebover/appicon/generator"
	"github.com/kacebover/appicon/pngasm"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run dispatches subcommands and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	// Без подкоманды ведём себя как исходный скрипт: создаём app-icon.png
	if len(args) == 0 {
		return runGenerateCommand(ctx, config.JobAppIcon, nil, stdout, stderr)
	}

	switch args[0] {
	case "app-icon", "иконка":
		return runGenerateCommand(ctx, config.JobAppIcon, args[1:], stdout, stderr)
	case "tauri-icons", "набор":
		return runGenerateCommand(ctx, config.JobTauriIcons, args[1:], stdout, stderr)
	case "verify", "проверить":
		return runVerifyCommand(args[1:], stdout, stderr)
	case "help", "--help", "-h", "помощь":
		printMainHelp(stdout)
		return 0
	}

	fmt.Fprintf(stderr, "❌ Неизвестная команда: %s\n\n", args[0])
	printMainHelp(stderr)
	return 2
}

func printMainHelp(w io.Writer) {
	fmt.Fprintln(w, "🎨 Генератор Иконок Приложения")
	fmt.Fprintln(w, "==============================")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Команды:")
	fmt.Fprintln(w, "  app-icon (иконка)       Создать app-icon.png 1024x1024 (по умолчанию)")
	fmt.Fprintln(w, "  tauri-icons (набор)     Создать набор иконок Tauri (32, 128, 128@2x, 256, 512)")
	fmt.Fprintln(w, "  verify (проверить)      Проверить PNG-файлы: CRC чанков и декодирование")
	fmt.Fprintln(w, "  help (помощь)           Показать эту справку")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Примеры:")
	fmt.Fprintln(w, "  appicon app-icon -out ./assets")
	fmt.Fprintln(w, "  appicon tauri-icons -out src-tauri/icons -archive icons.zip")
	fmt.Fprintln(w, "  appicon app-icon -renderer fallback")
	fmt.Fprintln(w, "  appicon verify src-tauri/icons/32x32.png")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Запустите 'appicon <команда> -h' для подробной информации.")
}

// ═══════════════════════════════════════════════════════════════════════════
// ГЕНЕРАЦИЯ ИКОНОК
// ═══════════════════════════════════════════════════════════════════════════

func runGenerateCommand(ctx context.Context, job config.Job, args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet(string(job), flag.ContinueOnError)
	cmd.SetOutput(stderr)

	configPath := cmd.String("config", "", "Путь к JSON-конфигурации задания")
	outputDir := cmd.String("out", "", "Директория для иконок")
	renderer := cmd.String("renderer", "", "Способ отрисовки: auto, vector, fallback")
	letter := cmd.String("letter", "", "Буква на иконке")
	background := cmd.String("bg", "", "Цвет фона (#RRGGBB)")
	fonts := cmd.String("fonts", "", "Шрифты TTF/OTF через запятую (пробуются первыми)")
	archivePath := cmd.String("archive", "", "Упаковать набор в ZIP-архив")
	password := cmd.String("password", "", "Пароль AES-256 для архива")
	saveConfig := cmd.String("save-config", "", "Сохранить итоговую конфигурацию в файл")
	verbose := cmd.Bool("verbose", false, "Подробный вывод")

	if err := cmd.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	cfg, err := config.LoadConfig(*configPath, job)
	if err != nil {
		fmt.Fprintf(stderr, "❌ Ошибка конфигурации: %v\n", err)
		return 1
	}

	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *renderer != "" {
		cfg.Renderer = *renderer
	}
	if *letter != "" {
		cfg.Letter = *letter
	}
	if *background != "" {
		cfg.Background = *background
	}
	if *fonts != "" {
		cfg.FontPaths = append(splitList(*fonts), cfg.FontPaths...)
	}
	if *archivePath != "" {
		cfg.ArchivePath = *archivePath
	}
	if *password != "" {
		cfg.ArchivePassword = *password
	}
	cfg.ValidateConfig()

	if *saveConfig != "" {
		if err := config.SaveConfig(*saveConfig, cfg); err != nil {
			fmt.Fprintf(stderr, "❌ Не удалось сохранить конфигурацию: %v\n", err)
			return 1
		}
	}

	logger := newLogger(stderr, *verbose)
	defer logger.Sync()

	gen, err := generator.New(cfg, generator.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(stderr, "❌ Ошибка: %v\n", err)
		return 1
	}

	result, err := gen.Generate(ctx)
	if err != nil {
		if pngasm.IsAssemblyError(err) {
			fmt.Fprintln(stderr, "❌ Не удалось собрать PNG вручную")
		}
		fmt.Fprintf(stderr, "❌ Ошибка генерации: %v\n", err)
		return 1
	}

	printResult(stdout, result)
	return 0
}

func printResult(w io.Writer, result *generator.Result) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "✅ Иконки созданы!")
	fmt.Fprintln(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Fprintf(w, "🎨 Отрисовка:         %s\n", result.Renderer)
	if result.Renderer == config.RendererFallback {
		fmt.Fprintln(w, "⚠️  Использован запасной вариант: иконки полностью прозрачные")
	}
	for _, f := range result.Files {
		fmt.Fprintf(w, "🖼️  %-20s %4dpx  %s\n", f.Name, f.Size, formatBytes(int64(f.Bytes)))
	}
	if result.Archive != nil {
		fmt.Fprintf(w, "📦 Архив:             %s (%s)\n", result.Archive.OutputPath, formatBytes(result.Archive.ArchiveSize))
	}
	fmt.Fprintf(w, "⏱️  Время:             %s\n", result.Duration.Round(1e6))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Теперь выполните: npx tauri icon")
}

// ═══════════════════════════════════════════════════════════════════════════
// ПРОВЕРКА PNG
// ═══════════════════════════════════════════════════════════════════════════

func runVerifyCommand(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	if err := cmd.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	if cmd.NArg() == 0 {
		fmt.Fprintln(stderr, "❌ Ошибка: Не указаны файлы для проверки")
		return 2
	}

	failed := 0
	for _, path := range cmd.Args() {
		report, err := verifyPNG(path)
		if err != nil {
			fmt.Fprintf(stdout, "❌ %s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Fprintf(stdout, "✅ %s: %dx%d, чанки %s", path, report.width, report.height, strings.Join(report.chunks, ","))
		if report.transparent {
			fmt.Fprint(stdout, ", полностью прозрачный")
		}
		fmt.Fprintln(stdout)
	}

	if failed > 0 {
		return 1
	}
	return 0
}

type pngReport struct {
	width, height int
	chunks        []string
	transparent   bool
}

func verifyPNG(path string) (*pngReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	chunks, err := pngasm.ReadChunks(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	report := &pngReport{
		width:       img.Bounds().Dx(),
		height:      img.Bounds().Dy(),
		transparent: true,
	}
	for _, c := range chunks {
		report.chunks = append(report.chunks, c.Type)
	}

	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y && report.transparent; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0 {
				report.transparent = false
				break
			}
		}
	}
	return report, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// ВСПОМОГАТЕЛЬНЫЕ ФУНКЦИИ
// ═══════════════════════════════════════════════════════════════════════════

func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d Б", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %s", float64(bytes)/float64(div), []string{"КБ", "МБ", "ГБ", "ТБ"}[exp])
}
