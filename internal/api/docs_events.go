package api

const eventsDocsHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Decision Stream | Archive Redirector</title>
  <style>
    *, *::before, *::after { box-sizing: border-box; }
    body {
      margin: 0;
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", sans-serif;
      font-size: 14px;
      line-height: 1.65;
      background: #0d1117;
      color: #c9d1d9;
    }
    a { color: #58a6ff; text-decoration: none; }
    nav {
      background: #161b22;
      border-bottom: 1px solid #30363d;
      padding: 0 24px;
      height: 48px;
      display: flex;
      align-items: center;
      gap: 24px;
    }
    nav .brand { font-weight: 600; font-size: 15px; color: #e6edf3; }
    nav .sep { color: #484f58; }
    main { max-width: 860px; margin: 0 auto; padding: 24px 16px 48px; }
    h1, h2, h3 { color: #e6edf3; }
    code {
      background: #161b22;
      border: 1px solid #30363d;
      border-radius: 4px;
      padding: 1px 5px;
      font-family: "SFMono-Regular", Consolas, "Liberation Mono", Menlo, monospace;
      font-size: 12px;
    }
    pre {
      background: #161b22;
      border: 1px solid #30363d;
      border-radius: 6px;
      padding: 16px;
      overflow-x: auto;
    }
    pre code { background: none; border: none; padding: 0; font-size: 13px; }
    table { border-collapse: collapse; width: 100%; margin-bottom: 20px; }
    th, td { border: 1px solid #30363d; padding: 6px 10px; text-align: left; }
    th { background: #161b22; color: #e6edf3; }
  </style>
</head>
<body>
<nav>
  <span class="brand">Archive Redirector</span>
  <span class="sep">/</span>
  <span>Decision Stream</span>
  <a href="/docs">REST API Docs</a>
</nav>
<main>
  <h1>Decision Stream</h1>
  <p>Every navigation the interceptor evaluates is published as one JSON event.
     The same stream is offered as Server-Sent Events and over a WebSocket.</p>

  <h2 id="endpoints">Endpoints</h2>
  <table>
    <thead><tr><th>Transport</th><th>Path</th></tr></thead>
    <tbody>
      <tr><td>SSE</td><td><code>GET /events</code></td></tr>
      <tr><td>WebSocket</td><td><code>GET /ws/events</code></td></tr>
    </tbody>
  </table>
  <p>Both accept <code>?kinds=redirect,skip_homepage</code> to filter by outcome.
     Omit it to receive every outcome.</p>

  <h2 id="kinds">Outcomes</h2>
  <table>
    <thead><tr><th>Kind</th><th>Meaning</th></tr></thead>
    <tbody>
      <tr><td><code>redirect</code></td><td>The tab was sent to its archive.is snapshot.</td></tr>
      <tr><td><code>skip_homepage</code></td><td>A listed domain's homepage was left alone.</td></tr>
      <tr><td><code>no_match</code></td><td>No listed domain matched the host.</td></tr>
      <tr><td><code>already_handled</code></td><td>The URL was already handled in this tab.</td></tr>
      <tr><td><code>invalid_url</code></td><td>The URL could not be parsed.</td></tr>
      <tr><td><code>settings_error</code></td><td>Settings could not be read.</td></tr>
    </tbody>
  </table>

  <h2 id="format">Event format</h2>
  <pre><code>event: redirect
data: {"timestamp":"2026-01-02T15:04:05Z","hook":"before_navigate","tab_id":3,"url":"https://example.com/a/b?x=1","outcome":"redirect","target":"https://archive.is/newest/https://example.com/a/b","matched_domain":"example.com"}</code></pre>
  <p>WebSocket clients receive only the <code>data</code> payload as a text frame.
     SSE clients also get a <code>: keep-alive</code> comment every 30 seconds.</p>

  <h2 id="examples">Examples</h2>
  <pre><code>curl -N http://127.0.0.1:8190/events
curl -N 'http://127.0.0.1:8190/events?kinds=redirect'</code></pre>
  <pre><code>const ws = new WebSocket('ws://127.0.0.1:8190/ws/events?kinds=redirect');
ws.onmessage = (e) => console.log(JSON.parse(e.data));</code></pre>
</main>
</body>
</html>`
