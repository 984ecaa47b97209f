package api

// docsHTML is the inspector landing page: a live capture list fed by the SSE
// stream above the generated API reference.
const docsHTML = `<!doctype html>
<html lang="en" data-theme="dark">
<head>
  <meta charset="utf-8" />
  <meta name="referrer" content="same-origin" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Network Inspector</title>
  <link href="https://unpkg.com/@stoplight/elements@9.0.0/styles.min.css" rel="stylesheet" />
  <script src="https://unpkg.com/@stoplight/elements@9.0.0/web-components.min.js" crossorigin="anonymous"></script>
  <style>
    body { margin: 0; background: #0d1117; color: #c9d1d9; font: 13px -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; }
    nav { display: flex; gap: 8px; align-items: center; padding: 10px 16px; border-bottom: 1px solid #30363d; }
    nav strong { margin-right: auto; }
    nav a, nav button { background: #161b22; border: 1px solid #30363d; border-radius: 6px; color: #58a6ff; padding: 5px 12px; text-decoration: none; cursor: pointer; font: inherit; }
    #captures { max-height: 35vh; overflow-y: auto; border-bottom: 1px solid #30363d; }
    table { width: 100%; border-collapse: collapse; }
    td, th { padding: 4px 16px; text-align: left; white-space: nowrap; }
    tr.fail td.status { color: #f85149; }
    td.url { overflow: hidden; text-overflow: ellipsis; max-width: 60vw; }
    elements-api { display: block; height: 65vh; }
  </style>
</head>
<body>
  <nav>
    <strong>Network Inspector</strong>
    <span id="count">0 requests</span>
    <a href="/api/v1/requests" target="_blank">Raw JSON</a>
    <a href="/api/v1/export/har">Download HAR</a>
    <button id="clear" type="button">Clear</button>
  </nav>
  <div id="captures">
    <table>
      <thead><tr><th>Status</th><th>Method</th><th>URL</th><th>Time</th></tr></thead>
      <tbody id="rows"></tbody>
    </table>
  </div>
  <elements-api
    apiDescriptionUrl="/openapi.json"
    router="hash"
    layout="sidebar"
    tryItCredentialsPolicy="same-origin"
    darkMode
  />
  <script>
    const rows = document.getElementById('rows');
    const count = document.getElementById('count');
    const render = (rec) => {
      const tr = document.createElement('tr');
      if (rec.status_code < 200 || rec.status_code >= 300) tr.className = 'fail';
      for (const [cls, text] of [['status', rec.status_code], ['method', rec.method], ['url', rec.url], ['time', (rec.duration * 1000).toFixed(0) + ' ms']]) {
        const td = document.createElement('td');
        td.className = cls;
        td.textContent = text;
        tr.appendChild(td);
      }
      rows.prepend(tr);
      count.textContent = rows.children.length + ' requests';
    };
    fetch('/api/v1/requests').then(r => r.json()).then(body => (body.requests || []).forEach(render));
    new EventSource('/api/v1/stream').addEventListener('request', e => render(JSON.parse(e.data)));
    document.getElementById('clear').addEventListener('click', () => {
      fetch('/api/v1/requests', { method: 'DELETE' }).then(() => {
        rows.replaceChildren();
        count.textContent = '0 requests';
      });
    });
  </script>
</body>
</html>`
