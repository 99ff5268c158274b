package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var verbose bool
var baseURL *url.URL

// scenario 封装一次端到端巡检过程中共享的资源。
type scenario struct {
	client *http.Client
	suffix string
}

type adBody struct {
	ID          uint64  `json:"id"`
	Name        string  `json:"name"`
	Author      string  `json:"author"`
	Category    string  `json:"category"`
	Price       int64   `json:"price"`
	Description string  `json:"description"`
	IsPublished bool    `json:"is_published"`
	Image       *string `json:"image"`
}

type adList struct {
	Items    []adBody `json:"items_list"`
	Total    int64    `json:"total"`
	NumPages int      `json:"num_pages"`
}

func banner(title string) {
	log.Printf("\n=== %s ===", title)
}

func step(format string, args ...interface{}) {
	log.Printf(" • "+format, args...)
}

func main() {
	var (
		base    string
		timeout time.Duration
	)
	flag.StringVar(&base, "base", "http://127.0.0.1:8000", "Base URL of the adboard server")
	flag.DurationVar(&timeout, "timeout", 20*time.Second, "HTTP timeout for requests")
	flag.BoolVar(&verbose, "v", true, "Verbose logging")
	flag.Parse()

	var err error
	baseURL, err = url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		log.Fatalf("parse base url: %v", err)
	}
	sc := &scenario{client: &http.Client{Timeout: timeout}, suffix: fmt.Sprint(time.Now().UnixNano())}
	sc.run()
}

func (s *scenario) run() {
	must := func(err error, msg string) {
		if err != nil {
			log.Fatalf("%s: %v", msg, err)
		}
	}
	log.Printf("E2E start -> %s", baseURL)

	banner("Health Checks")
	step("GET /")
	var root map[string]string
	must(doJSON(s.client, "GET", abs("/"), nil, 200, &root), "root")
	if root["status"] != "ok" {
		log.Fatalf("root status: %v", root)
	}
	step("Probe /healthz")
	must(expectStatus(s.client, "GET", abs("/healthz"), nil, "", 200), "healthz")
	step("Probe /metrics")
	must(expectStatus(s.client, "GET", abs("/metrics"), nil, "", 200), "metrics")

	banner("Scaffold Author & Category")
	author := "e2e_" + s.suffix
	other := "e2e_other_" + s.suffix
	category := "E2E " + s.suffix
	step("Create dev users %s, %s", author, other)
	must(doJSON(s.client, "POST", abs("/dev/users"), map[string]string{"username": author, "first_name": "E2E"}, 201, nil), "dev create user")
	must(doJSON(s.client, "POST", abs("/dev/users"), map[string]string{"username": other, "first_name": "Other"}, 201, nil), "dev create user")
	step("Create category %q", category)
	must(doJSON(s.client, "POST", abs("/cat/create/"), map[string]string{"name": category}, 201, nil), "create category")

	banner("Ad Lifecycle")
	step("Create ad")
	var ad adBody
	must(doJSON(s.client, "POST", abs("/ad/create/"), map[string]any{
		"author": author, "category": category, "name": "E2E Phone", "price": 100, "description": "smoke test",
	}, 201, &ad), "create ad")
	id := fmt.Sprint(ad.ID)

	step("Create with unknown author (expect 404)")
	must(doJSON(s.client, "POST", abs("/ad/create/"), map[string]any{
		"author": "nobody_" + s.suffix, "category": category, "name": "x", "price": 1, "description": "",
	}, 404, nil), "create unknown author")

	step("List ads")
	var list adList
	must(doJSON(s.client, "GET", abs("/ad/?page=1"), nil, 200, &list), "list ads")
	if list.Total < 1 || list.NumPages < 1 {
		log.Fatalf("unexpected list: %+v", list)
	}

	step("Detail ad %s", id)
	var got adBody
	must(doJSON(s.client, "GET", abs("/ad/"+id+"/"), nil, 200, &got), "detail")
	if got.Author != author || got.Category != category || got.Price != 100 {
		log.Fatalf("detail mismatch: %+v", got)
	}

	step("Partial update: price, author")
	must(doJSON(s.client, "PATCH", abs("/ad/"+id+"/update/"), map[string]any{"price": 150, "author": other}, 200, &got), "update")
	if got.Price != 150 || got.Author != other || got.Name != "E2E Phone" {
		log.Fatalf("update mismatch: %+v", got)
	}

	step("Upload image")
	must(s.upload("/ad/"+id+"/upload_image/", &got), "upload image")
	if got.Image == nil {
		log.Fatalf("image url missing after upload")
	}
	step("Fetch image %s (best effort)", *got.Image)
	_ = expectStatus(s.client, "GET", abs(*got.Image), nil, "", 200)

	banner("Cleanup")
	step("Delete ad %s", id)
	must(expectStatus(s.client, "DELETE", abs("/ad/"+id+"/delete/"), nil, "", 204), "delete")
	step("Detail after delete (expect 404)")
	must(expectStatus(s.client, "GET", abs("/ad/"+id+"/"), nil, "", 404), "detail after delete")

	log.Printf("\nE2E OK, 全链路检查通过 (ad=%s)\n", id)
}

func (s *scenario) upload(path string, out any) error {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{G: 200, A: 255})
	var pic bytes.Buffer
	if err := png.Encode(&pic, img); err != nil {
		return err
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "e2e.png")
	if err != nil {
		return err
	}
	if _, err := fw.Write(pic.Bytes()); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}
	req, err := http.NewRequest("POST", abs(path), &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != 200 {
		return fmt.Errorf("POST %s: status %d want 200 body: %s", path, resp.StatusCode, string(b))
	}
	if verbose {
		log.Printf("POST %s -> %d\n响应体: %s", path, resp.StatusCode, prettyJSON(b))
	}
	return json.Unmarshal(b, out)
}

// abs 将相对路径解析为基于 -base 的绝对 URL；已是绝对 URL 时原样返回。
func abs(p string) string {
	u, err := url.Parse(p)
	if err != nil {
		return p
	}
	return baseURL.ResolveReference(u).String()
}

func doJSON(client *http.Client, method, urlStr string, body any, want int, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
		if verbose {
			log.Printf("%s %s\n请求体: %s", method, urlStr, prettyJSON(b))
		}
	}
	req, err := http.NewRequest(method, urlStr, r)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%s %s: status %d, want %d, body: %s", method, urlStr, resp.StatusCode, want, string(b))
	}
	b, _ := io.ReadAll(resp.Body)
	if verbose {
		log.Printf("%s %s -> %d\n响应体: %s", method, urlStr, resp.StatusCode, prettyJSON(b))
	}
	if out != nil {
		if err := json.Unmarshal(b, out); err != nil {
			return err
		}
	}
	return nil
}

func expectStatus(client *http.Client, method, urlStr string, body io.Reader, contentType string, want int) error {
	req, _ := http.NewRequest(method, urlStr, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != want {
		return fmt.Errorf("%s %s: status %d want %d body: %s", method, urlStr, resp.StatusCode, want, string(b))
	}
	if verbose {
		log.Printf("%s %s -> %d\n响应体: %s", method, urlStr, resp.StatusCode, safeTrunc(string(b), 1200))
	}
	return nil
}

func prettyJSON(b []byte) string {
	var out bytes.Buffer
	if err := json.Indent(&out, b, "", "  "); err != nil {
		return safeTrunc(string(b), 1200)
	}
	return safeTrunc(out.String(), 4000)
}

func safeTrunc(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
