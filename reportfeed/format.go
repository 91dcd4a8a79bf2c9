package reportfeed

// reportFormat defines the HTML structure of the report.
const reportFormat = `
<h3>Status</h3>
<div class="preformatted" id='status'>
%s
</div>
<h3>Message Counts</h3>
<pre>
<code>
<div class="preformatted" id='counts'>
%s
</div>
</code>
</pre>
<h3>Recent Events</h3>
<pre>
<code>
<div class="preformatted" id='events'>
%s
</div>
</code>
</pre>
<h3>Last Buffer</h3>
<span id='buffertimestamp'>%s</span>
<pre>
<code>
<div class="preformatted" id='buffer'>
%s
</div>
</code>
</pre>
<h3>Recent Messages</h3>
<pre>
<code>
<div class="preformatted" id='messages'>
%s
</div>
</code>
</pre>
`

// pageFormat wraps the report in a page that refreshes itself.
const pageFormat = `<!DOCTYPE html>
<html>
<head>
<meta http-equiv="refresh" content="%d">
<title>NTRIP Stream Status</title>
<style>.preformatted { font-family: monospace; white-space: pre; }</style>
</head>
<body>
%s
</body>
</html>
`
