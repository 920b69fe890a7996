package router

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"rawhttp/httpmsg"
)

var mimeTypes = map[string]string{
	"html": "text/html",
	"css":  "text/css",
	"js":   "application/javascript",
	"json": "application/json",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"txt":  "text/plain",
}

// underStaticRoot reports whether the request path addresses the
// static directory itself or something inside it.
func (r *Router) underStaticRoot(path string) bool {
	return path == "/"+r.staticDir || strings.HasPrefix(path, "/"+r.staticDir+"/")
}

// serveStatic maps the request path to a file-system path under the
// static root and serves it. A nil return means fallthrough: the path
// resolved to nothing and routing continues toward 404.
func (r *Router) serveStatic(path string) *httpmsg.Response {
	filePath := r.resolve(path)

	// Textual traversal check, before any file-system access. The raw
	// resolved string is inspected on purpose: canonicalization must
	// not get a chance to hide a parent-directory segment.
	if strings.Contains(filePath, "..") {
		return httpmsg.NewResponse(403).
			WithContentType("text/html").
			WithBody("<h1>403 - Forbidden</h1><p>Directory traversal is not allowed.</p>")
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return nil
	}

	if info.IsDir() {
		return r.serveDirectoryListing(filePath, path)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		r.logger.Error("failed to read static file", "path", filePath, "error", err)
		return httpmsg.NewResponse(500).
			WithContentType("text/html").
			WithBody("<h1>500 - Internal Server Error</h1><p>Unable to read the requested file.</p>")
	}

	return httpmsg.NewResponse(200).
		WithContentType(contentTypeFor(filePath)).
		WithBody(string(content))
}

// resolve maps a request path to a path under the static root using
// plain string concatenation, so any ".." survives verbatim for the
// traversal check.
func (r *Router) resolve(path string) string {
	switch {
	case path == "/":
		return r.staticDir + "/index.html"
	case path == "/"+r.staticDir, path == "/"+r.staticDir+"/":
		return r.staticDir
	case strings.HasPrefix(path, "/"+r.staticDir+"/"):
		return r.staticDir + strings.TrimPrefix(path, "/"+r.staticDir)
	default:
		return r.staticDir + path
	}
}

func (r *Router) serveDirectoryListing(dirPath, requestPath string) *httpmsg.Response {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		r.logger.Error("failed to read directory", "path", dirPath, "error", err)
		return httpmsg.NewResponse(500).
			WithContentType("text/html").
			WithBody("<h1>500 - Internal Server Error</h1><p>Unable to read directory contents.</p>")
	}

	// Directories first, then files, both lexicographic.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	fmt.Fprintf(&b, "<title>Directory Listing: %s</title>\n", requestPath)
	b.WriteString("</head>\n<body>\n")
	fmt.Fprintf(&b, "<h1>Directory Listing: %s</h1>\n", requestPath)

	if requestPath != "/" && requestPath != "" {
		fmt.Fprintf(&b, "<p><a href=\"%s\">Parent Directory</a></p>\n", parentPath(requestPath))
	}

	b.WriteString("<ul>\n")
	for _, entry := range entries {
		name := entry.Name()
		link := strings.TrimSuffix(requestPath, "/") + "/" + name

		suffix := ""
		if entry.IsDir() {
			suffix = "/"
		}

		fmt.Fprintf(&b, "<li><a href=\"%s%s\">%s%s</a></li>\n", link, suffix, name, suffix)
	}
	b.WriteString("</ul>\n</body>\n</html>")

	return httpmsg.NewResponse(200).
		WithContentType("text/html").
		WithBody(b.String())
}

func parentPath(requestPath string) string {
	trimmed := strings.TrimSuffix(requestPath, "/")

	idx := strings.LastIndex(trimmed, "/")
	if idx <= 0 {
		return "/"
	}
	return trimmed[:idx]
}

func contentTypeFor(filePath string) string {
	ext := filePath[strings.LastIndex(filePath, ".")+1:]
	if mime, ok := mimeTypes[ext]; ok {
		return mime
	}
	return "text/plain"
}
