package httpd

import (
	"testing"

	"github.com/behrlich/webd/internal/bytebuf"
	"github.com/behrlich/webd/internal/content"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, dir, name, body string) {
	t.Helper()
	s := content.NewStore()
	s.Put("/"+name, []byte(body))
	require.NoError(t, s.WriteTo(dir))
}

func TestMakeResponseServesExistingFile(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "index.html", "<html>hi</html>")

	var resp Response
	resp.Init(dir, "/index.html", true, -1)

	buf := bytebuf.New(256)
	resp.MakeResponse(buf)
	defer resp.UnmapFile()

	require.Equal(t, 200, resp.Code)
	require.Contains(t, string(buf.Peek()), "HTTP/1.1 200 OK")
	require.Contains(t, string(buf.Peek()), "Connection: keep-alive")
	require.Equal(t, int64(len("<html>hi</html>")), resp.FileLen())
	require.Equal(t, "<html>hi</html>", string(resp.File()))
}

func TestMakeResponseMissingFileIs404(t *testing.T) {
	dir := t.TempDir()

	var resp Response
	resp.Init(dir, "/missing.html", false, -1)

	buf := bytebuf.New(256)
	resp.MakeResponse(buf)
	defer resp.UnmapFile()

	require.Equal(t, 404, resp.Code)
	require.Contains(t, string(buf.Peek()), "HTTP/1.1 404 Not Found")
}

func TestFileTypeLookupHonorsQuirkyTable(t *testing.T) {
	var resp Response
	resp.Path = "/a.pdf"
	require.Equal(t, "applocation/pdf", resp.fileType())

	resp.Path = "/a.unknownext"
	require.Equal(t, "text/plain", resp.fileType())

	resp.Path = "/a.mpeg"
	require.Equal(t, "videp/mpeg", resp.fileType())
}

func TestErrorContentFallsBackToBadRequest(t *testing.T) {
	var resp Response
	resp.Code = 999
	buf := bytebuf.New(256)
	resp.errorContent(buf, "oops")

	require.Contains(t, string(buf.Peek()), "999 : Bad Request")
}
