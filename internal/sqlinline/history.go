package sqlinline

const QEnsureGenerationLog = `--sql 4b8e2f6a-1c3d-4e5f-8a9b-0c1d2e3f4a5b
create table if not exists generation_log (
  id          uuid primary key default gen_random_uuid(),
  kind        text not null,
  provider    text not null,
  prompt      text not null,
  status      text not null,
  detail      text not null default '',
  file_urls   text[] not null default '{}',
  duration_ms bigint not null default 0,
  created_at  timestamptz not null default now()
);
`

const QEnsureGenerationLogIndex = `--sql 9d7c5b3a-2e4f-4a6b-8c0d-1e2f3a4b5c6d
create index if not exists generation_log_created_at_idx
  on generation_log (created_at desc);
`

const QInsertGenerationLog = `--sql 6a1b2c3d-4e5f-4a7b-9c8d-0e1f2a3b4c5d
insert into generation_log (kind, provider, prompt, status, detail, file_urls, duration_ms)
values ($1, $2, $3, $4, $5, $6, $7);
`

const QRecentGenerations = `--sql 3e5d7c9b-0a2f-4b6d-8e1c-2a4b6c8d0e1f
select id, kind, provider, prompt, status, detail, file_urls, duration_ms, created_at
from generation_log
order by created_at desc
limit $1;
`
