package handlers

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// AdminLogsHandler — просмотр JSON-логов приложения за последние дни.
// Понимает файлы lumberjack: текущий app.log и ротированные
// app-<timestamp>.log[.gz] (день ищем по имени файла).
type AdminLogsHandler struct {
	LogDir    string
	Retention int // дней назад, глубже не смотрим
}

func NewAdminLogsHandler() *AdminLogsHandler {
	return &AdminLogsHandler{LogDir: "logs", Retention: 14}
}

var reDay = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ListDays godoc
// @Summary      Дни, за которые есть логи
// @Tags         admin-logs
// @Security     ApiKeyAuth
// @Produce      json
// @Success      200 {object} map[string][]string
// @Router       /api/admin/logs/days [get]
func (h *AdminLogsHandler) ListDays(w http.ResponseWriter, r *http.Request) {
	today := time.Now().Local()
	var days []string
	for i := 0; i < h.Retention; i++ {
		d := today.AddDate(0, 0, -i).Format("2006-01-02")
		if files, err := h.filesForDay(d); err == nil && len(files) > 0 {
			days = append(days, d)
		}
	}
	sort.Strings(days)
	writeJSON(w, http.StatusOK, map[string]any{"days": days})
}

// logQuery — разобранные query-параметры фильтрации.
type logQuery struct {
	day    string
	levels map[string]bool // верхний регистр, пустая map == без фильтра
	hour   int             // -1 == любой час
	search *regexp.Regexp
	limit  int
	cursor int
}

func parseLogQuery(r *http.Request) (logQuery, bool) {
	q := logQuery{hour: -1}

	q.day = r.URL.Query().Get("day")
	if !reDay.MatchString(q.day) {
		return q, false
	}

	q.levels = map[string]bool{}
	for _, p := range strings.Split(r.URL.Query().Get("level"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			q.levels[strings.ToUpper(p)] = true
		}
	}

	if hs := r.URL.Query().Get("hour"); hs != "" {
		if hv, err := strconv.Atoi(hs); err == nil && hv >= 0 && hv <= 23 {
			q.hour = hv
		}
	}

	if s := strings.TrimSpace(r.URL.Query().Get("q")); s != "" {
		q.search = regexp.MustCompile("(?i)" + regexp.QuoteMeta(s))
	}

	q.limit = clampAtoi(r.URL.Query().Get("limit"), 200, 50, 1000)
	q.cursor = clampAtoi(r.URL.Query().Get("cursor"), 0, 0, 10_000_000)
	return q, true
}

// GetLogs godoc
// @Summary      Логи за день
// @Description  JSON-строки логов за день с фильтрами по уровню, часу и подстроке.
// @Tags         admin-logs
// @Security     ApiKeyAuth
// @Produce      json
// @Param        day     query  string true  "Дата (YYYY-MM-DD)"
// @Param        level   query  string false "CSV уровней: debug,info,warn,error"
// @Param        hour    query  int    false "Час (0-23)"
// @Param        q       query  string false "Поиск по подстроке"
// @Param        limit   query  int    false "Лимит (по умолч. 200, макс. 1000)"
// @Param        cursor  query  int    false "Номер строки для пагинации"
// @Success      200 {object} map[string]interface{}
// @Failure      404 {object} map[string]string "day not found"
// @Router       /api/admin/logs [get]
func (h *AdminLogsHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	q, ok := parseLogQuery(r)
	if !ok {
		http.Error(w, "bad day", http.StatusBadRequest)
		return
	}

	lineNo := 0
	matched := 0
	items := make([]json.RawMessage, 0, q.limit)

	err := h.forEachDayLine(q.day, func(raw []byte) bool {
		lineNo++
		if lineNo <= q.cursor {
			return true
		}
		if q.search != nil && !q.search.Match(raw) {
			return true
		}
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err != nil {
			// не-JSON строки (консольный формат) пропускаем
			return true
		}
		if len(q.levels) > 0 && !q.levels[strings.ToUpper(getString(obj, "level"))] {
			return true
		}
		if q.hour >= 0 {
			if t, err := time.Parse(time.RFC3339Nano, getString(obj, "time")); err == nil && t.Hour() != q.hour {
				return true
			}
		}
		items = append(items, append([]byte{}, raw...))
		matched++
		return matched < q.limit
	})
	if err != nil {
		http.Error(w, "day not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"day":        q.day,
		"items":      items,
		"nextCursor": q.cursor + matched,
	})
}

// Stats godoc
// @Summary      Статистика логов по часам
// @Description  Количество записей по уровням для каждого часа дня.
// @Tags         admin-logs
// @Security     ApiKeyAuth
// @Produce      json
// @Param        day query string true "Дата (YYYY-MM-DD)"
// @Success      200 {object} map[string]interface{}
// @Router       /api/admin/logs/stats [get]
func (h *AdminLogsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("day")
	if !reDay.MatchString(day) {
		http.Error(w, "bad day", http.StatusBadRequest)
		return
	}

	stats := make(map[int]map[string]int, 24)
	for hr := 0; hr < 24; hr++ {
		stats[hr] = map[string]int{}
	}

	_ = h.forEachDayLine(day, func(raw []byte) bool {
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err != nil {
			return true
		}
		lvl := strings.ToUpper(getString(obj, "level"))
		if lvl == "" {
			return true
		}
		if t, err := time.Parse(time.RFC3339Nano, getString(obj, "time")); err == nil {
			stats[t.Hour()][lvl]++
		}
		return true
	})

	writeJSON(w, http.StatusOK, map[string]any{"day": day, "stats": stats})
}

// DownloadRaw godoc
// @Summary      Скачать лог-файл целиком
// @Tags         admin-logs
// @Security     ApiKeyAuth
// @Produce      text/plain
// @Param        day query string true "Дата (YYYY-MM-DD)"
// @Success      200 {file} file
// @Failure      404 {object} map[string]string "file not found"
// @Router       /api/admin/logs/download [get]
func (h *AdminLogsHandler) DownloadRaw(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("day")
	if !reDay.MatchString(day) {
		http.Error(w, "bad day", http.StatusBadRequest)
		return
	}
	files, err := h.filesForDay(day)
	if err != nil || len(files) == 0 {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}
	fpath := files[0]
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(fpath)+`"`)
	http.ServeFile(w, r, fpath)
}

// filesForDay собирает файлы логов за день: текущий app.log (только для
// сегодняшнего дня) и ротированные lumberjack-файлы с датой в имени.
func (h *AdminLogsHandler) filesForDay(day string) ([]string, error) {
	entries, err := os.ReadDir(h.LogDir)
	if err != nil {
		return nil, err
	}
	today := time.Now().Local().Format("2006-01-02")

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if name == "app.log" && day == today {
			files = append(files, filepath.Join(h.LogDir, name))
			continue
		}
		if strings.HasPrefix(name, "app-") && strings.Contains(name, day) &&
			(strings.HasSuffix(name, ".log") || strings.HasSuffix(name, ".gz")) {
			files = append(files, filepath.Join(h.LogDir, name))
		}
	}
	sort.Strings(files)
	return files, nil
}

// forEachDayLine читает все строки всех файлов дня, включая .gz.
func (h *AdminLogsHandler) forEachDayLine(day string, handle func([]byte) bool) error {
	files, err := h.filesForDay(day)
	if err != nil || len(files) == 0 {
		return os.ErrNotExist
	}

	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		var reader io.Reader = f
		var gr *gzip.Reader
		if strings.HasSuffix(path, ".gz") {
			if gzr, err := gzip.NewReader(f); err == nil {
				gr = gzr
				reader = gr
			} else {
				f.Close()
				continue
			}
		}

		sc := bufio.NewScanner(reader)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			if !handle(sc.Bytes()) {
				break
			}
		}

		if gr != nil {
			_ = gr.Close()
		}
		_ = f.Close()
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func getString(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func clampAtoi(s string, def, min, max int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
